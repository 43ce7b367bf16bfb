// Package testutil builds shared roots and targets on disk for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Tree maps slash-separated relative paths to file contents. A path ending
// in "/" is created as an empty directory.
type Tree map[string]string

// DefaultShared is a shared root with every subtree populated.
func DefaultShared() Tree {
	return Tree{
		"skills/review/SKILL.md":          "# review skill\n",
		"workflows/trawl.md":              "# trawl\n",
		"workflows/resume.md":             "# resume\n",
		"workflows/wrapup.md":             "# wrapup\n",
		"workflows/notes.txt":             "not mirrored\n",
		"rules/style.md":                  "# style\n",
		"templates/AGENT_INSTRUCTIONS.md": "# shared instructions\n",
		"scripts/":                        "",
	}
}

// Write creates tree under root.
func Write(t testing.TB, root string, tree Tree) {
	t.Helper()
	for rel, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// NewShared creates a shared root populated with tree. The returned path has
// symlinks resolved so it compares equal to link targets.
func NewShared(t testing.TB, tree Tree) string {
	t.Helper()
	root := Resolved(t, t.TempDir())
	Write(t, root, tree)
	return root
}

// NewTarget creates an empty target directory with symlinks resolved.
func NewTarget(t testing.TB) string {
	t.Helper()
	return Resolved(t, t.TempDir())
}

// Resolved returns p with symlinks evaluated.
func Resolved(t testing.TB, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// ReadFile returns the content of a file under root, failing the test on
// error.
func ReadFile(t testing.TB, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// Readlink returns the raw target of the link at root/rel.
func Readlink(t testing.TB, root, rel string) string {
	t.Helper()
	target, err := os.Readlink(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("readlink %s: %v", rel, err)
	}
	return target
}

// Names lists the file names in root/rel, sorted.
func Names(t testing.TB, root, rel string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
