// Package platform provides the filesystem primitives the provisioner and
// reconciler build on: symlink creation, atomic link replacement, link
// inspection and permission management. Links are replaced by renaming a
// freshly created link over the old one so a reader never observes the path
// missing.
package platform
