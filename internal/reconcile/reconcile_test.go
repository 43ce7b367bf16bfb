package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsync-labs/agentsync/internal/backup"
	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/provision"
	"github.com/agentsync-labs/agentsync/internal/report"
	"github.com/agentsync-labs/agentsync/internal/testutil"
)

const version = "1.2.0"

// provisioned returns a shared root and a target initialized against it.
func provisioned(t *testing.T) (shared, target string) {
	t.Helper()
	shared = testutil.NewShared(t, testutil.DefaultShared())
	target = testutil.NewTarget(t)
	_, err := provision.Run(provision.Options{Target: target, SharedRoot: shared, ToolVersion: version})
	require.NoError(t, err)
	return shared, target
}

func update(t *testing.T, target, shared string) *report.Report {
	t.Helper()
	rep, err := Run(Options{Target: target, SharedRoot: shared, ToolVersion: version})
	require.NoError(t, err)
	return rep
}

func TestRunIsIdempotent(t *testing.T) {
	shared, target := provisioned(t)

	for i := 0; i < 2; i++ {
		rep := update(t, target, shared)
		assert.False(t, rep.Changed(), "run %d: %s", i, rep.Summary())
		assert.Empty(t, rep.Warnings)
		assert.False(t, rep.StateUpdated)
	}
}

func TestRunNotInitialized(t *testing.T) {
	shared := testutil.NewShared(t, testutil.DefaultShared())
	target := testutil.NewTarget(t)

	_, err := Run(Options{Target: target, SharedRoot: shared})
	require.Error(t, err)
	assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrNotInitialized))
	assert.Contains(t, agenterrors.Hint(err), "init")
	assert.Empty(t, testutil.Names(t, target, "."))
}

func TestRunSharedRootMissing(t *testing.T) {
	_, target := provisioned(t)

	_, err := Run(Options{Target: target, SharedRoot: filepath.Join(t.TempDir(), "gone")})
	assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrConfigMissing))
}

func TestRunMirrorsWorkflowChanges(t *testing.T) {
	shared, target := provisioned(t)
	testutil.Write(t, target, testutil.Tree{".claude/commands/local.txt": "kept\n"})

	require.NoError(t, os.Remove(filepath.Join(shared, "workflows", "wrapup.md")))
	testutil.Write(t, shared, testutil.Tree{
		"workflows/handoff.md": "# handoff\n",
		"workflows/resume.md":  "# resume v2\n",
	})

	rep := update(t, target, shared)
	assert.Equal(t, []string{"handoff.md"}, rep.Mirror.Added)
	assert.Equal(t, []string{"resume.md"}, rep.Mirror.Updated)
	assert.Equal(t, []string{"wrapup.md"}, rep.Mirror.Removed)
	assert.Equal(t, []string{"handoff.md", "local.txt", "resume.md", "trawl.md"}, testutil.Names(t, target, ".claude/commands"))
	assert.Equal(t, "# resume v2\n", testutil.ReadFile(t, target, ".claude/commands/resume.md"))
}

func TestRunMigratesLegacyRulesLink(t *testing.T) {
	shared := testutil.NewShared(t, testutil.DefaultShared())
	target := testutil.NewTarget(t)
	require.NoError(t, os.MkdirAll(filepath.Join(target, ".agent"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(shared, "rules"), filepath.Join(target, ".agent", "rules")))

	rep := update(t, target, shared)

	assert.Empty(t, rep.BackedUp)
	assert.Contains(t, rep.Removed, report.Removal{Path: ".agent/rules", Reason: "legacy rules link"})
	info, err := os.Lstat(filepath.Join(target, ".agent", "rules"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(shared, "rules"), testutil.Readlink(t, target, ".agent/rules/shared"))
	assert.FileExists(t, filepath.Join(target, ".agent", "rules", "README.md"))
	assert.FileExists(t, filepath.Join(shared, "rules", "style.md"))
	_, err = os.Stat(filepath.Join(shared, "rules", "README.md"))
	assert.True(t, os.IsNotExist(err), "README must not be written through the legacy link")
}

func TestRunBacksUpForeignRulesFile(t *testing.T) {
	shared, target := provisioned(t)
	rules := filepath.Join(target, ".agent", "rules")
	require.NoError(t, os.RemoveAll(rules))
	require.NoError(t, os.WriteFile(rules, []byte("flat rules\n"), 0644))

	rep := update(t, target, shared)

	assert.Equal(t, []report.Backup{{Path: ".agent/rules", Backup: ".agent/rules.backup"}}, rep.BackedUp)
	assert.Equal(t, "flat rules\n", testutil.ReadFile(t, target, ".agent/rules.backup"))
	assert.Equal(t, filepath.Join(shared, "rules"), testutil.Readlink(t, target, ".agent/rules/shared"))
}

func TestRunNeverDestroysRealEntries(t *testing.T) {
	shared, target := provisioned(t)
	skills := filepath.Join(target, ".agent", "skills")
	require.NoError(t, os.Remove(skills))
	testutil.Write(t, target, testutil.Tree{".agent/skills/mine/SKILL.md": "local skill\n"})

	rep := update(t, target, shared)

	assert.Equal(t, []report.Backup{{Path: ".agent/skills", Backup: ".agent/skills.backup"}}, rep.BackedUp)
	assert.Equal(t, "local skill\n", testutil.ReadFile(t, target, ".agent/skills.backup/mine/SKILL.md"))
	assert.Equal(t, filepath.Join(shared, "skills"), testutil.Readlink(t, target, ".agent/skills"))
	assert.Len(t, rep.LinksCreated, 1)
}

func TestRunRepairsLinks(t *testing.T) {
	shared, target := provisioned(t)
	elsewhere := t.TempDir()

	workflows := filepath.Join(target, ".agent", "workflows")
	require.NoError(t, os.Remove(workflows))
	require.NoError(t, os.Symlink(elsewhere, workflows))

	gemini := filepath.Join(target, "GEMINI.md")
	require.NoError(t, os.Remove(gemini))
	require.NoError(t, os.Symlink("MISSING.md", gemini))

	require.NoError(t, os.Remove(filepath.Join(target, "CLAUDE.md")))

	rep := update(t, target, shared)

	assert.Empty(t, rep.BackedUp)
	assert.ElementsMatch(t, []report.Link{
		{Path: ".agent/workflows", Target: filepath.Join(shared, "workflows")},
		{Path: "GEMINI.md", Target: "AGENT_INSTRUCTIONS.md"},
	}, rep.LinksReplaced)
	assert.Equal(t, []report.Link{{Path: "CLAUDE.md", Target: "AGENT_INSTRUCTIONS.md"}}, rep.LinksCreated)
	assert.Equal(t, "AGENT_INSTRUCTIONS.md", testutil.Readlink(t, target, "GEMINI.md"))
}

func TestRunPreservesLocalContent(t *testing.T) {
	shared, target := provisioned(t)
	local := testutil.Tree{
		"AGENT_INSTRUCTIONS.md":           "edited instructions\n",
		".agent/history/2026-01-01.md":    "session\n",
		".agent/history/README.md":        "my readme\n",
		".agent/rules/README.md":          "my rules\n",
		".agent/rules/testing.md":         "local rule\n",
		".claude/settings.local.json":     "{\"permissions\": {\"allow\": [\"x\"]}}\n",
		".agent/techdocs/architecture.md": "arch\n",
	}
	testutil.Write(t, target, local)

	rep := update(t, target, shared)
	assert.False(t, rep.Changed(), rep.Summary())
	for rel, content := range local {
		assert.Equal(t, content, testutil.ReadFile(t, target, rel), rel)
	}
}

func TestRunRecreatesMissingLocalItems(t *testing.T) {
	shared, target := provisioned(t)
	require.NoError(t, os.RemoveAll(filepath.Join(target, ".agent", "techdocs")))
	require.NoError(t, os.Remove(filepath.Join(target, ".agent", "rules", "README.md")))

	rep := update(t, target, shared)
	assert.ElementsMatch(t, []string{".agent/techdocs/", ".agent/techdocs/README.md", ".agent/rules/README.md"}, rep.FilesCreated)
}

func TestRunMissingUpstreamSubtrees(t *testing.T) {
	shared, target := provisioned(t)
	require.NoError(t, os.RemoveAll(filepath.Join(shared, "skills")))
	require.NoError(t, os.RemoveAll(filepath.Join(shared, "workflows")))

	rep := update(t, target, shared)

	assert.Len(t, rep.Warnings, 3)
	assert.False(t, rep.Changed())
	assert.Equal(t, []string{"resume.md", "trawl.md", "wrapup.md"}, testutil.Names(t, target, ".claude/commands"))
}

func TestRunReplacesLinkedCommandsDir(t *testing.T) {
	shared, target := provisioned(t)
	commands := filepath.Join(target, ".claude", "commands")
	require.NoError(t, os.RemoveAll(commands))
	require.NoError(t, os.Symlink(filepath.Join(shared, "workflows"), commands))

	rep := update(t, target, shared)

	assert.Contains(t, rep.Removed, report.Removal{Path: ".claude/commands", Reason: "commands directory was a link"})
	info, err := os.Lstat(commands)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, []string{"notes.txt", "resume.md", "trawl.md", "wrapup.md"}, testutil.Names(t, shared, "workflows"))
}

func TestRunHonorsTargetSettings(t *testing.T) {
	shared, target := provisioned(t)
	testutil.Write(t, target, testutil.Tree{
		".agent/agentsync.yaml": "aliases: [CLAUDE.md, AGENTS.md]\nignore_history: true\n",
	})

	rep := update(t, target, shared)

	assert.Equal(t, []report.Link{{Path: "AGENTS.md", Target: "AGENT_INSTRUCTIONS.md"}}, rep.LinksCreated)
	assert.True(t, rep.IgnoreUpdated)
	ignore := testutil.ReadFile(t, target, ".gitignore")
	assert.Contains(t, ignore, "\n.agent/history/\n")
	assert.NotContains(t, ignore, "# .agent/history/")
}

func TestRunInvalidSettings(t *testing.T) {
	shared, target := provisioned(t)
	testutil.Write(t, target, testutil.Tree{".agent/agentsync.yaml": "aliases: [../escape.md]\n"})

	_, err := Run(Options{Target: target, SharedRoot: shared})
	assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrSettingsInvalid), "got %v", err)
}

func TestRunRejectsSettingsOverlappingManagedPaths(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"alias replaces agent dir", "aliases: [.agent]\n"},
		{"commands dir over linked workflows", "commands_dir: .agent/workflows\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared, target := provisioned(t)
			testutil.Write(t, target, testutil.Tree{".agent/agentsync.yaml": tt.content})
			before := testutil.Names(t, target, ".agent")

			for i := 0; i < 3; i++ {
				_, err := Run(Options{Target: target, SharedRoot: shared})
				assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrSettingsInvalid), "run %d: got %v", i, err)
			}

			info, err := os.Lstat(filepath.Join(target, ".agent"))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
			assert.Equal(t, before, testutil.Names(t, target, ".agent"))
			assert.Equal(t, filepath.Join(shared, "workflows"), testutil.Readlink(t, target, ".agent/workflows"))
		})
	}
}

func TestRunWarnsAboutNewerStamp(t *testing.T) {
	shared, target := provisioned(t)
	testutil.Write(t, target, testutil.Tree{".agent/.agentsync-state.yaml": "tool_version: 9.0.0\nlayout_version: 2\n"})

	rep := update(t, target, shared)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "9.0.0")
}

func TestRunVersionedBackups(t *testing.T) {
	shared, target := provisioned(t)
	for i := 0; i < 2; i++ {
		claude := filepath.Join(target, "CLAUDE.md")
		require.NoError(t, os.Remove(claude))
		require.NoError(t, os.WriteFile(claude, []byte("real\n"), 0644))

		rep, err := Run(Options{Target: target, SharedRoot: shared, Policy: backup.PolicyVersioned, ToolVersion: version})
		require.NoError(t, err)
		require.Len(t, rep.BackedUp, 1)
	}
	assert.FileExists(t, filepath.Join(target, "CLAUDE.md.backup"))
	assert.FileExists(t, filepath.Join(target, "CLAUDE.md.backup.1"))
}
