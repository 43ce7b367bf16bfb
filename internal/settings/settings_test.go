package settings

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(afero.NewMemMapFs(), "/repo/.agent/agentsync.yaml")
	require.NoError(t, err)
	assert.Equal(t, topology.DefaultLayout(), s.Apply(topology.DefaultLayout()))
}

func TestParseValid(t *testing.T) {
	data := []byte(`
aliases:
  - CLAUDE.md
  - AGENTS.md
commands_dir: .tool/commands
settings_file: .tool/settings.json
ignore_history: true
`)
	s, err := Parse(data, "agentsync.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"CLAUDE.md", "AGENTS.md"}, s.Aliases)
	assert.True(t, s.IgnoreHistory)

	l := s.Apply(topology.DefaultLayout())
	assert.Equal(t, []string{"CLAUDE.md", "AGENTS.md"}, l.Aliases)
	assert.Equal(t, ".tool/commands", l.CommandsDir)
	assert.Equal(t, ".tool/settings.json", l.SettingsFile)
	assert.Equal(t, "AGENT_INSTRUCTIONS.md", l.Primary)
}

func TestParseCommentsOnly(t *testing.T) {
	s, err := Parse([]byte("# nothing set\n# aliases: []\n"), "agentsync.yaml")
	require.NoError(t, err)
	assert.Nil(t, s.Aliases)
}

func TestEmptyAliasesDisablesAliases(t *testing.T) {
	s, err := Parse([]byte("aliases: []\n"), "agentsync.yaml")
	require.NoError(t, err)
	assert.Empty(t, s.Apply(topology.DefaultLayout()).Aliases)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		path string
	}{
		{"unknown key", "colour: blue\n", ""},
		{"alias with slash", "aliases: [docs/CLAUDE.md]\n", "/aliases/0"},
		{"alias dotdot", "aliases: [\"..\"]\n", "/aliases/0"},
		{"absolute commands dir", "commands_dir: /etc/commands\n", "/commands_dir"},
		{"escaping settings file", "settings_file: ../outside.json\n", "/settings_file"},
		{"wrong type", "ignore_history: \"yes\"\n", "/ignore_history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "agentsync.yaml")
			require.Error(t, err)
			assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrSettingsInvalid), "got %v", err)
			if tt.path != "" {
				assert.Contains(t, err.Error(), tt.path)
			}
		})
	}
}

func TestValidateMalformedYAML(t *testing.T) {
	_, err := Validate([]byte("aliases: [unterminated"))
	assert.Error(t, err)
}

func TestParseRejectsManagedPathConflicts(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"alias is the agent directory", "aliases: [.agent]\n", `aliases[0] ".agent" overlaps the agent directory`},
		{"alias is the primary file", "aliases: [AGENT_INSTRUCTIONS.md]\n", "primary file"},
		{"alias differs only in case", "aliases: [.Agent]\n", "agent directory"},
		{"alias is the ignore file", "aliases: [.gitignore]\n", "ignore file"},
		{"commands dir inside the agent directory", "commands_dir: .agent/workflows\n", `commands_dir ".agent/workflows"`},
		{"commands dir is the target root", "commands_dir: .\n", "commands_dir"},
		{"settings file inside the agent directory", "settings_file: .agent/settings.json\n", "settings_file"},
		{"settings file inside the commands dir", "commands_dir: .tool\nsettings_file: .tool/settings.json\n", `overlaps settings_file`},
		{"commands dir is an alias", "aliases: [CLAUDE.md]\ncommands_dir: CLAUDE.md\n", `overlaps commands_dir`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "agentsync.yaml")
			require.Error(t, err)
			assert.True(t, agenterrors.IsErrorCode(err, agenterrors.ErrSettingsInvalid), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConflictsDefaultLayoutIsClean(t *testing.T) {
	var s Settings
	assert.Empty(t, s.Conflicts(topology.DefaultLayout()))
}

func TestValidateDescribesIssuesPerSetting(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		setting string
		keyword string
		message string
	}{
		{"unknown key", "colour: blue\n", "", "additionalProperties", `unknown setting "colour"`},
		{"alias with slash", "aliases: [docs/CLAUDE.md]\n", "aliases", "pattern", "without slashes"},
		{"alias dotdot", "aliases: [\"..\"]\n", "aliases", "not", `cannot be "." or ".."`},
		{"duplicate alias", "aliases: [CLAUDE.md, CLAUDE.md]\n", "aliases", "uniqueItems", "listed twice"},
		{"escaping settings file", "settings_file: ../x.json\n", "settings_file", "not", "no .. segments"},
		{"absolute commands dir", "commands_dir: /etc\n", "commands_dir", "pattern", "relative to the repository root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate([]byte(tt.yaml))
			require.NoError(t, err)
			require.False(t, res.Valid)
			require.Len(t, res.Issues, 1, "%+v", res.Issues)
			issue := res.Issues[0]
			assert.Equal(t, tt.setting, issue.Setting)
			assert.Equal(t, tt.keyword, issue.Keyword)
			assert.Contains(t, issue.Message, tt.message)
		})
	}
}
