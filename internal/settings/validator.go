package settings

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/settings.schema.json
var schemaBytes []byte

const schemaURL = "agentsync-settings.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error

	printer = message.NewPrinter(language.English)
)

// knownSettings is the closed set of top-level keys, in schema order.
var knownSettings = []string{"aliases", "commands_dir", "settings_file", "ignore_history"}

// ValidationResult is the outcome of checking a settings file.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is one problem in a settings file.
type ValidationIssue struct {
	// Path is the JSON pointer of the offending value, e.g. "/aliases/0".
	Path string
	// Setting is the top-level key the value belongs to. Empty for problems
	// with the document itself.
	Setting string
	Keyword string
	Message string
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			schemaErr = fmt.Errorf("decoding embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("registering embedded schema: %w", err)
			return
		}
		if schema, err = c.Compile(schemaURL); err != nil {
			schemaErr = fmt.Errorf("compiling embedded schema: %w", err)
		}
	})
	return schema, schemaErr
}

// Validate checks raw YAML settings against the embedded schema. Malformed
// YAML is an error; schema violations come back as issues.
func Validate(data []byte) (*ValidationResult, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc == nil {
		// empty or comments only
		doc = map[string]any{}
	}

	// The validator wants JSON-model values; a YAML round trip through JSON
	// also rejects keys that are not strings.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("settings must be a mapping of string keys: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	var issues []ValidationIssue
	seen := map[string]bool{}
	walkIssues(ve, func(issue ValidationIssue) {
		if key := issue.String(); !seen[key] {
			seen[key] = true
			issues = append(issues, issue)
		}
	})
	if len(issues) == 0 {
		issues = []ValidationIssue{{Message: ve.LocalizedError(printer)}}
	}
	return &ValidationResult{Issues: issues}, nil
}

// walkIssues visits the leaf errors of ve.
func walkIssues(ve *jsonschema.ValidationError, visit func(ValidationIssue)) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			walkIssues(c, visit)
		}
		return
	}
	if issue, ok := describe(ve); ok {
		visit(issue)
	}
}

// describe turns a leaf error into an issue phrased in terms of the
// settings file. Structural kinds carry nothing useful and are skipped.
func describe(ve *jsonschema.ValidationError) (ValidationIssue, bool) {
	issue := ValidationIssue{}
	if len(ve.InstanceLocation) > 0 {
		issue.Path = "/" + strings.Join(ve.InstanceLocation, "/")
		issue.Setting = ve.InstanceLocation[0]
	}

	switch k := ve.ErrorKind.(type) {
	case nil, *kind.Group, *kind.Schema, *kind.Reference:
		return issue, false
	case *kind.AdditionalProperties:
		issue.Keyword = "additionalProperties"
		issue.Message = fmt.Sprintf("unknown setting %s (known: %s)",
			strings.Join(quoteAll(k.Properties), ", "), strings.Join(knownSettings, ", "))
	case *kind.Not:
		issue.Keyword = "not"
		issue.Message = notMessage(issue.Setting)
	case *kind.Pattern:
		issue.Keyword = "pattern"
		issue.Message = patternMessage(issue.Setting, k.Got)
	case *kind.UniqueItems:
		issue.Keyword = "uniqueItems"
		issue.Message = fmt.Sprintf("alias listed twice (items %d and %d)", k.Duplicates[0], k.Duplicates[1])
	default:
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			issue.Keyword = kw[len(kw)-1]
		}
		issue.Message = ve.ErrorKind.LocalizedString(printer)
	}
	return issue, true
}

func notMessage(setting string) string {
	if setting == "aliases" {
		return `alias cannot be "." or ".."`
	}
	return "path must stay inside the target repository (no .. segments)"
}

func patternMessage(setting, got string) string {
	if setting == "aliases" {
		return fmt.Sprintf("alias %q must be a file name in the repository root, without slashes", got)
	}
	return fmt.Sprintf("%q must be relative to the repository root", got)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
