// Package topology classifies every artifact agentsync manages into one of
// three kinds (linked, mirrored, local) and maps it to its canonical place in
// a target repository. The classification is fixed; only the file names in a
// Layout vary. The package also models the shapes the rules directory has had
// across releases and the pure migration plan from each shape to the current
// one.
package topology
