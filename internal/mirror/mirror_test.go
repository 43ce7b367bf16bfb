package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fsys afero.Fs, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, name), []byte(content), 0644))
	}
}

func names(t *testing.T, fsys afero.Fs, dir string) []string {
	t.Helper()
	var out []string
	for e, err := range Scan(fsys, dir, Suffix) {
		require.NoError(t, err)
		out = append(out, e.Name)
	}
	return out
}

func TestScanFiltersBySuffix(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/shared/workflows", map[string]string{
		"resume.md": "r",
		"wrapup.md": "w",
		"notes.txt": "n",
		".gitkeep":  "",
	})
	require.NoError(t, fsys.MkdirAll("/shared/workflows/nested.md", 0755))

	assert.ElementsMatch(t, []string{"resume.md", "wrapup.md"}, names(t, fsys, "/shared/workflows"))
}

func TestScanIsRestartable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/w", map[string]string{"a.md": "a"})
	seq := Scan(fsys, "/w", Suffix)

	count := 0
	for range seq {
		count++
	}
	for range seq {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestScanMissingDir(t *testing.T) {
	assert.Empty(t, names(t, afero.NewMemMapFs(), "/nope"))
}

func TestScanManyEntries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]string{}
	for i := 0; i < readBatch*2+5; i++ {
		files[fmt.Sprintf("wf-%03d.md", i)] = "x"
	}
	writeFiles(t, fsys, "/w", files)
	assert.Len(t, names(t, fsys, "/w"), len(files))
}

func TestSyncConvergesToUpstream(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/shared/workflows", map[string]string{
		"resume.md": "resume v1",
		"wrapup.md": "wrapup v1",
	})

	res, err := Sync(fsys, "/shared/workflows", "/repo/.claude/commands")
	require.NoError(t, err)
	assert.Equal(t, []string{"resume.md", "wrapup.md"}, res.Added)
	assert.True(t, res.Changed())

	// Upstream adds trawl.md and removes wrapup.md.
	require.NoError(t, afero.WriteFile(fsys, "/shared/workflows/trawl.md", []byte("trawl"), 0644))
	require.NoError(t, fsys.Remove("/shared/workflows/wrapup.md"))

	res, err = Sync(fsys, "/shared/workflows", "/repo/.claude/commands")
	require.NoError(t, err)
	assert.Equal(t, []string{"trawl.md"}, res.Added)
	assert.Equal(t, []string{"wrapup.md"}, res.Removed)
	assert.Equal(t, []string{"resume.md"}, res.Unchanged)

	assert.ElementsMatch(t, []string{"resume.md", "trawl.md"}, names(t, fsys, "/repo/.claude/commands"))
	data, err := afero.ReadFile(fsys, "/repo/.claude/commands/trawl.md")
	require.NoError(t, err)
	assert.Equal(t, "trawl", string(data))
}

func TestSyncOverwritesLocalEdits(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/shared/workflows", map[string]string{"resume.md": "upstream"})
	writeFiles(t, fsys, "/repo/cmds", map[string]string{"resume.md": "edited locally"})

	res, err := Sync(fsys, "/shared/workflows", "/repo/cmds")
	require.NoError(t, err)
	assert.Equal(t, []string{"resume.md"}, res.Updated)

	data, _ := afero.ReadFile(fsys, "/repo/cmds/resume.md")
	assert.Equal(t, "upstream", string(data))
}

func TestSyncIsIdempotent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/s", map[string]string{"a.md": "a", "b.md": "b"})

	_, err := Sync(fsys, "/s", "/d")
	require.NoError(t, err)
	res, err := Sync(fsys, "/s", "/d")
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, []string{"a.md", "b.md"}, res.Unchanged)
}

func TestSyncLeavesOtherFilesAlone(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/s", map[string]string{"a.md": "a"})
	writeFiles(t, fsys, "/d", map[string]string{"keep.json": "{}"})

	res, err := Sync(fsys, "/s", "/d")
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	exists, _ := afero.Exists(fsys, "/d/keep.json")
	assert.True(t, exists)
}

func TestSyncReplacesSymlinkWithoutWritingThrough(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink tests require a Unix filesystem")
	}
	tmp := t.TempDir()
	src := filepath.Join(tmp, "shared", "workflows")
	dst := filepath.Join(tmp, "repo", "commands")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.MkdirAll(dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "resume.md"), []byte("new"), 0644))

	victim := filepath.Join(tmp, "victim.md")
	require.NoError(t, os.WriteFile(victim, []byte("do not touch"), 0644))
	require.NoError(t, os.Symlink(victim, filepath.Join(dst, "resume.md")))

	res, err := Sync(afero.NewOsFs(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"resume.md"}, res.Updated)

	data, _ := os.ReadFile(victim)
	assert.Equal(t, "do not touch", string(data))
	info, err := os.Lstat(filepath.Join(dst, "resume.md"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
}
