package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// FileName is the settings file inside the agent directory.
const FileName = "agentsync.yaml"

// Settings are the per-repository overrides. Zero values keep the defaults;
// a present but empty aliases list disables aliases.
type Settings struct {
	Aliases       []string `yaml:"aliases,omitempty"`
	CommandsDir   string   `yaml:"commands_dir,omitempty"`
	SettingsFile  string   `yaml:"settings_file,omitempty"`
	IgnoreHistory bool     `yaml:"ignore_history,omitempty"`
}

// Path returns the settings file path for a target.
func Path(targetRoot, agentDir string) string {
	return filepath.Join(targetRoot, agentDir, FileName)
}

// Load reads and validates the settings file. A missing file yields empty
// settings. Schema violations are reported as SETTINGS_INVALID.
func Load(fsys afero.Fs, path string) (*Settings, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, agenterrors.FromFS(err, "reading", path)
	}
	return Parse(data, path)
}

// Parse validates and decodes settings bytes. source names the file in
// error messages.
func Parse(data []byte, source string) (*Settings, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, agenterrors.Wrapf(err, agenterrors.ErrSettingsInvalid, "checking %s", source)
	}
	if !result.Valid {
		msgs := make([]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			msgs = append(msgs, issue.String())
		}
		return nil, agenterrors.Newf(agenterrors.ErrSettingsInvalid, "%s is invalid: %s", source, strings.Join(msgs, "; ")).
			WithDetail("issues", result.Issues).
			WithHint(fmt.Sprintf("fix %s and re-run", source))
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, agenterrors.Wrapf(err, agenterrors.ErrSettingsInvalid, "parsing %s", source)
	}
	layout := topology.DefaultLayout()
	if conflicts := s.Conflicts(layout); len(conflicts) > 0 {
		return nil, agenterrors.Newf(agenterrors.ErrSettingsInvalid, "%s is invalid: %s", source, strings.Join(conflicts, "; ")).
			WithDetail("conflicts", conflicts).
			WithHint(fmt.Sprintf("keep aliases, commands_dir and settings_file apart from each other and from %s/, %s and %s", layout.AgentDir, layout.Primary, ignoreFile))
	}
	return &s, nil
}

const ignoreFile = ".gitignore"

// managedPath is a target-relative path the tool writes, named by the
// settings key that produced it.
type managedPath struct {
	key  string
	path string
}

// Conflicts lists the settings paths that would land on, inside, or around
// another path the tool manages once applied to layout. The schema checks
// each value on its own; this checks them against each other.
func (s *Settings) Conflicts(layout topology.Layout) []string {
	applied := s.Apply(layout)

	reserved := []managedPath{
		{"agent directory", applied.AgentDir},
		{"primary file", applied.Primary},
		{"ignore file", ignoreFile},
	}
	var own []managedPath
	for i, a := range applied.Aliases {
		own = append(own, managedPath{fmt.Sprintf("aliases[%d]", i), a})
	}
	own = append(own,
		managedPath{"commands_dir", applied.CommandsDir},
		managedPath{"settings_file", applied.SettingsFile},
	)

	var out []string
	for i, p := range own {
		for _, r := range reserved {
			if overlaps(p.path, r.path) {
				out = append(out, fmt.Sprintf("%s %q overlaps the %s %q", p.key, p.path, r.key, r.path))
			}
		}
		for _, q := range own[i+1:] {
			if overlaps(p.path, q.path) {
				out = append(out, fmt.Sprintf("%s %q overlaps %s %q", p.key, p.path, q.key, q.path))
			}
		}
	}
	return out
}

// overlaps reports whether a and b name the same entry or one contains the
// other. Names compare case-insensitively.
func overlaps(a, b string) bool {
	a = strings.ToLower(path.Clean(filepath.ToSlash(a)))
	b = strings.ToLower(path.Clean(filepath.ToSlash(b)))
	if a == "." || b == "." {
		return true
	}
	return a == b || strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// Apply returns layout with these settings overlaid.
func (s *Settings) Apply(layout topology.Layout) topology.Layout {
	if s == nil {
		return layout
	}
	if s.Aliases != nil {
		layout.Aliases = append([]string(nil), s.Aliases...)
	}
	if s.CommandsDir != "" {
		layout.CommandsDir = filepath.ToSlash(filepath.Clean(s.CommandsDir))
	}
	if s.SettingsFile != "" {
		layout.SettingsFile = filepath.ToSlash(filepath.Clean(s.SettingsFile))
	}
	return layout
}
