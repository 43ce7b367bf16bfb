package stubs

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Stub names.
const (
	History           = "history"
	Techdocs          = "techdocs"
	FutureFeatures    = "future_features"
	LocalDoc          = "local_doc"
	Rules             = "rules"
	AgentInstructions = "agent_instructions"
	Settings          = "settings.local"
	TargetSettings    = "agentsync"
)

var fileNames = map[string]string{
	History:           "history.md.tmpl",
	Techdocs:          "techdocs.md.tmpl",
	FutureFeatures:    "future_features.md.tmpl",
	LocalDoc:          "local_doc.md.tmpl",
	Rules:             "rules.md.tmpl",
	AgentInstructions: "agent_instructions.md.tmpl",
	Settings:          "settings.local.json.tmpl",
	TargetSettings:    "agentsync.yaml.tmpl",
}

// Data holds the variables available to every stub template.
type Data struct {
	Project  string // target directory base name
	Name     string // directory name for generic local docs
	CLIName  string
	AgentDir string
	Primary  string
	Aliases  []string
}

// ForLocalDoc returns the stub name for a local documentation directory.
func ForLocalDoc(dir string) string {
	switch dir {
	case History, Techdocs, FutureFeatures:
		return dir
	default:
		return LocalDoc
	}
}

// Render executes the named stub template.
func Render(name string, data Data) ([]byte, error) {
	file, ok := fileNames[name]
	if !ok {
		return nil, fmt.Errorf("unknown stub %q", name)
	}
	raw, err := fs.ReadFile(templateFS, path.Join("templates", file))
	if err != nil {
		return nil, fmt.Errorf("reading stub template %s: %w", file, err)
	}
	tmpl, err := template.New(file).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing stub template %s: %w", file, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing stub template %s: %w", file, err)
	}
	return buf.Bytes(), nil
}

// WriteIfAbsent renders the named stub to dst unless something already
// exists there, including a dangling symlink. It reports whether it wrote.
func WriteIfAbsent(fsys afero.Fs, dst, name string, data Data) (bool, error) {
	exists, err := Exists(fsys, dst)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	content, err := Render(name, data)
	if err != nil {
		return false, err
	}
	return true, WriteFile(fsys, dst, content)
}

// WriteFile writes content to dst, creating parent directories.
func WriteFile(fsys afero.Fs, dst string, content []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dst, err)
	}
	if err := afero.WriteFile(fsys, dst, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// Exists reports whether anything, including a dangling symlink, is at p.
func Exists(fsys afero.Fs, p string) (bool, error) {
	var err error
	if l, ok := fsys.(afero.Lstater); ok {
		_, _, err = l.LstatIfPossible(p)
	} else {
		_, err = fsys.Stat(p)
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", p, err)
}
