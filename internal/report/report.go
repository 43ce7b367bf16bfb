// Package report collects what a provisioning or reconciliation run did to a
// target and renders it for people (styled text) or machines (JSON).
package report

import (
	"fmt"
	"sort"
)

// Backup is one entry moved aside by the backup guard.
type Backup struct {
	Path   string `json:"path"`
	Backup string `json:"backup"`
}

// Link is one symlink created or repointed.
type Link struct {
	Path   string `json:"path"`
	Target string `json:"target"`
}

// Removal is one entry deleted, with the reason it went.
type Removal struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Mirror lists the file names a command mirror touched.
type Mirror struct {
	Dir     string   `json:"dir,omitempty"`
	Added   []string `json:"added,omitempty"`
	Updated []string `json:"updated,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Report is the outcome of one run against one target. Paths are relative to
// the target root and slash-separated.
type Report struct {
	Operation     string    `json:"operation"`
	Target        string    `json:"target"`
	SharedRoot    string    `json:"shared_root"`
	BackedUp      []Backup  `json:"backed_up,omitempty"`
	LinksCreated  []Link    `json:"links_created,omitempty"`
	LinksReplaced []Link    `json:"links_replaced,omitempty"`
	Removed       []Removal `json:"removed,omitempty"`
	FilesCreated  []string  `json:"files_created,omitempty"`
	Mirror        Mirror    `json:"mirror"`
	IgnoreUpdated bool      `json:"ignore_updated,omitempty"`
	StateUpdated  bool      `json:"state_updated,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// New starts an empty report.
func New(operation, target, sharedRoot string) *Report {
	return &Report{Operation: operation, Target: target, SharedRoot: sharedRoot}
}

// AddBackup records an entry renamed out of the way.
func (r *Report) AddBackup(path, backup string) {
	r.BackedUp = append(r.BackedUp, Backup{Path: path, Backup: backup})
}

// AddLink records a created link, or a relinked one when replaced is set.
func (r *Report) AddLink(path, target string, replaced bool) {
	l := Link{Path: path, Target: target}
	if replaced {
		r.LinksReplaced = append(r.LinksReplaced, l)
		return
	}
	r.LinksCreated = append(r.LinksCreated, l)
}

// AddRemoval records a deleted link and why it went.
func (r *Report) AddRemoval(path, reason string) {
	r.Removed = append(r.Removed, Removal{Path: path, Reason: reason})
}

// AddFile records a created file. Directories carry a trailing slash.
func (r *Report) AddFile(path string) {
	r.FilesCreated = append(r.FilesCreated, path)
}

// Warn records a non-fatal problem. The run still succeeds.
func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// MergeMirror folds a mirror result into the report.
func (r *Report) MergeMirror(dir string, added, updated, removed []string) {
	r.Mirror.Dir = dir
	r.Mirror.Added = append(r.Mirror.Added, added...)
	r.Mirror.Updated = append(r.Mirror.Updated, updated...)
	r.Mirror.Removed = append(r.Mirror.Removed, removed...)
	sort.Strings(r.Mirror.Added)
	sort.Strings(r.Mirror.Updated)
	sort.Strings(r.Mirror.Removed)
}

// Changed reports whether the run modified the target.
func (r *Report) Changed() bool {
	return len(r.BackedUp)+len(r.LinksCreated)+len(r.LinksReplaced)+len(r.Removed)+
		len(r.FilesCreated)+len(r.Mirror.Added)+len(r.Mirror.Updated)+len(r.Mirror.Removed) > 0 ||
		r.IgnoreUpdated
}

// Summary is a one-line count of the changes.
func (r *Report) Summary() string {
	if !r.Changed() {
		return "already up to date"
	}
	return fmt.Sprintf("%d backed up, %d linked, %d relinked, %d removed, %d created, mirror +%d ~%d -%d",
		len(r.BackedUp), len(r.LinksCreated), len(r.LinksReplaced), len(r.Removed), len(r.FilesCreated),
		len(r.Mirror.Added), len(r.Mirror.Updated), len(r.Mirror.Removed))
}
