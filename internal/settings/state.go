package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// StateFileName is the generated stamp inside the agent directory.
const StateFileName = ".agentsync-state.yaml"

// LayoutVersion is bumped whenever the produced tree changes shape.
// Version 2 introduced the hybrid rules directory.
const LayoutVersion = 2

// State records which tool version last wrote a target.
type State struct {
	ToolVersion   string `yaml:"tool_version"`
	LayoutVersion int    `yaml:"layout_version"`
}

// StatePath returns the stamp path for a target.
func StatePath(targetRoot, agentDir string) string {
	return filepath.Join(targetRoot, agentDir, StateFileName)
}

// LoadState reads the stamp. A missing stamp returns nil without error.
func LoadState(fsys afero.Fs, path string) (*State, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state %s: %w", path, err)
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	return &s, nil
}

// SaveState writes the stamp when it differs from what is on disk and
// reports whether it wrote.
func SaveState(fsys afero.Fs, path string, s *State) (bool, error) {
	current, err := LoadState(fsys, path)
	if err == nil && current != nil && *current == *s {
		return false, nil
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("marshaling state: %w", err)
	}
	header := "# Generated by agentsync. Do not edit.\n"
	if err := afero.WriteFile(fsys, path, append([]byte(header), data...), 0644); err != nil {
		return false, fmt.Errorf("writing state %s: %w", path, err)
	}
	return true, nil
}

// NextState computes the stamp to write after a run by toolVersion. A stamp
// written by a newer tool is kept as is and a warning is returned.
func NextState(previous *State, toolVersion string) (*State, string) {
	next := &State{ToolVersion: toolVersion, LayoutVersion: LayoutVersion}
	if previous == nil {
		return next, ""
	}
	newer, err := isNewer(previous.ToolVersion, toolVersion)
	if err != nil || !newer {
		return next, ""
	}
	return previous, fmt.Sprintf("target was last written by version %s, newer than this %s; consider upgrading",
		previous.ToolVersion, toolVersion)
}

// isNewer reports whether recorded is a strictly newer semver than current.
// Unparsable versions (e.g. "dev") never count as newer.
func isNewer(recorded, current string) (bool, error) {
	rv, err := semver.NewVersion(strings.TrimPrefix(recorded, "v"))
	if err != nil {
		return false, err
	}
	cv, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false, err
	}
	return rv.GreaterThan(cv), nil
}
