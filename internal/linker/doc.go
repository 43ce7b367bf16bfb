// Package linker applies the agent layout to a target repository. Each
// method converges one artifact: shared subtrees become symlinks, tool
// aliases link to the primary instructions file, workflows are mirrored into
// the tool's commands directory and missing local files get generated stubs.
//
// Local content is never overwritten. Anything real standing where a link
// must go is moved aside by the backup guard first. Every change is recorded
// in the run's report.
package linker
