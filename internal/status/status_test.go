package status_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/provision"
	"github.com/agentsync-labs/agentsync/internal/status"
	"github.com/agentsync-labs/agentsync/internal/testutil"
)

func provisioned(t *testing.T) (shared, target string) {
	t.Helper()
	shared = testutil.NewShared(t, testutil.DefaultShared())
	target = testutil.NewTarget(t)
	_, err := provision.Run(provision.Options{Target: target, SharedRoot: shared, ToolVersion: "1.0.0"})
	require.NoError(t, err)
	return shared, target
}

func stateOf(t *testing.T, res *status.Result, path string) status.State {
	t.Helper()
	for _, c := range res.Checks {
		if c.Path == path {
			return c.State
		}
	}
	t.Fatalf("no check for %s", path)
	return ""
}

func TestInspectFreshTarget(t *testing.T) {
	shared, target := provisioned(t)

	res, err := status.Inspect(target, shared)
	require.NoError(t, err)
	assert.True(t, res.Consistent(), "%+v", res.Checks)
	assert.Equal(t, status.StateOK, stateOf(t, res, ".agent/rules/shared"))
	assert.Equal(t, status.StateOK, stateOf(t, res, ".claude/commands"))
}

func TestInspectDetectsProblems(t *testing.T) {
	shared, target := provisioned(t)

	// Stale: the shared subtree went away.
	require.NoError(t, os.RemoveAll(filepath.Join(shared, "skills")))
	// Wrong target.
	gemini := filepath.Join(target, "GEMINI.md")
	require.NoError(t, os.Remove(gemini))
	require.NoError(t, os.Symlink("OTHER.md", gemini))
	// Not a link.
	claude := filepath.Join(target, "CLAUDE.md")
	require.NoError(t, os.Remove(claude))
	require.NoError(t, os.WriteFile(claude, []byte("real"), 0644))
	// Missing.
	require.NoError(t, os.Remove(filepath.Join(target, ".cursorrules")))
	// Drifted mirror.
	require.NoError(t, os.Remove(filepath.Join(target, ".claude", "commands", "trawl.md")))

	res, err := status.Inspect(target, shared)
	require.NoError(t, err)

	assert.Equal(t, status.StateStale, stateOf(t, res, ".agent/skills"))
	assert.Equal(t, status.StateWrongTarget, stateOf(t, res, "GEMINI.md"))
	assert.Equal(t, status.StateNotLink, stateOf(t, res, "CLAUDE.md"))
	assert.Equal(t, status.StateMissing, stateOf(t, res, ".cursorrules"))
	assert.Equal(t, status.StateDrifted, stateOf(t, res, ".claude/commands"))
	assert.Equal(t, 5, res.Problems())
}

func TestInspectLegacyRules(t *testing.T) {
	shared, target := provisioned(t)
	rules := filepath.Join(target, ".agent", "rules")
	require.NoError(t, os.RemoveAll(rules))
	require.NoError(t, os.Symlink(filepath.Join(shared, "rules"), rules))

	res, err := status.Inspect(target, shared)
	require.NoError(t, err)
	assert.Equal(t, status.StateLegacy, stateOf(t, res, ".agent/rules"))
	assert.False(t, res.Consistent())
}

func TestInspectNotInitialized(t *testing.T) {
	shared := testutil.NewShared(t, testutil.DefaultShared())
	_, err := status.Inspect(testutil.NewTarget(t), shared)
	assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrNotInitialized))
}

func TestInspectDoesNotWrite(t *testing.T) {
	shared, target := provisioned(t)
	require.NoError(t, os.Remove(filepath.Join(target, "CLAUDE.md")))
	before := testutil.Names(t, target, ".")

	_, err := status.Inspect(target, shared)
	require.NoError(t, err)
	assert.Equal(t, before, testutil.Names(t, target, "."))
}
