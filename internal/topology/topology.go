package topology

import (
	"fmt"
	"path"
	"path/filepath"
)

// Kind is the representation an artifact takes in a target repository.
type Kind int

const (
	// Linked artifacts are symlinks into the shared root and never copied.
	Linked Kind = iota + 1
	// Mirrored artifacts are copies kept in exact sync with the shared root.
	Mirrored
	// Local artifacts are created once and owned by the target afterwards.
	Local
)

// String returns the upper-case kind name.
func (k Kind) String() string {
	switch k {
	case Linked:
		return "LINKED"
	case Mirrored:
		return "MIRRORED"
	case Local:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Artifact identifies a managed unit of configuration.
type Artifact string

const (
	Skills            Artifact = "skills"
	Workflows         Artifact = "workflows"
	Rules             Artifact = "rules"
	RulesShared       Artifact = "rules-shared"
	RulesReadme       Artifact = "rules-readme"
	LocalDocs         Artifact = "local-docs"
	AgentInstructions Artifact = "agent-instructions-file"
	ToolAlias         Artifact = "tool-mirror-file"
	ToolCommands      Artifact = "tool-command-mirror"
	ToolSettings      Artifact = "tool-settings-file"
)

// Shared root subtree names.
const (
	SharedSkills    = "skills"
	SharedWorkflows = "workflows"
	SharedRules     = "rules"
	SharedTemplates = "templates"
	SharedScripts   = "scripts"
)

// kinds is the fixed classification. Layout never changes it.
var kinds = map[Artifact]Kind{
	Skills:            Linked,
	Workflows:         Linked,
	Rules:             Local,
	RulesShared:       Linked,
	RulesReadme:       Local,
	LocalDocs:         Local,
	AgentInstructions: Local,
	ToolAlias:         Linked,
	ToolCommands:      Mirrored,
	ToolSettings:      Local,
}

// order is the canonical processing order.
var order = []Artifact{
	LocalDocs,
	Skills,
	Workflows,
	Rules,
	RulesShared,
	RulesReadme,
	AgentInstructions,
	ToolAlias,
	ToolCommands,
	ToolSettings,
}

// Artifacts returns every managed artifact in canonical order.
func Artifacts() []Artifact {
	out := make([]Artifact, len(order))
	copy(out, order)
	return out
}

// KindOf returns the fixed kind of an artifact.
func KindOf(a Artifact) (Kind, error) {
	k, ok := kinds[a]
	if !ok {
		return 0, fmt.Errorf("unknown artifact %q", a)
	}
	return k, nil
}

// Placement is where an artifact lives and, for linked and mirrored
// artifacts, what it refers to.
type Placement struct {
	Artifact Artifact
	Kind     Kind
	// Dests are destinations relative to the target root, slash-separated.
	Dests []string
	// Source is relative to the shared root, or to the target root when
	// SourceInTarget is set (tool aliases point at the primary file).
	Source         string
	SourceInTarget bool
}

// Layout holds the file names a target uses. The zero value is not useful;
// start from DefaultLayout.
type Layout struct {
	AgentDir     string
	Primary      string
	Aliases      []string
	CommandsDir  string
	SettingsFile string
	LocalDocs    []string
	// HistoryDir is the session-history directory that may be excluded from
	// version control.
	HistoryDir string
}

// DefaultLayout returns the standard layout.
func DefaultLayout() Layout {
	return Layout{
		AgentDir:     ".agent",
		Primary:      "AGENT_INSTRUCTIONS.md",
		Aliases:      []string{"CLAUDE.md", "GEMINI.md", ".cursorrules"},
		CommandsDir:  ".claude/commands",
		SettingsFile: ".claude/settings.local.json",
		LocalDocs:    []string{"history", "techdocs", "future_features"},
		HistoryDir:   ".agent/history",
	}
}

// Resolve maps an artifact to its placement under this layout.
func (l Layout) Resolve(a Artifact) (Placement, error) {
	k, err := KindOf(a)
	if err != nil {
		return Placement{}, err
	}
	p := Placement{Artifact: a, Kind: k}
	agent := func(parts ...string) string {
		return path.Join(append([]string{l.AgentDir}, parts...)...)
	}

	switch a {
	case Skills:
		p.Dests = []string{agent("skills")}
		p.Source = SharedSkills
	case Workflows:
		p.Dests = []string{agent("workflows")}
		p.Source = SharedWorkflows
	case Rules:
		p.Dests = []string{agent("rules")}
	case RulesShared:
		p.Dests = []string{agent("rules", "shared")}
		p.Source = SharedRules
	case RulesReadme:
		p.Dests = []string{agent("rules", "README.md")}
	case LocalDocs:
		for _, d := range l.LocalDocs {
			p.Dests = append(p.Dests, agent(d))
		}
	case AgentInstructions:
		p.Dests = []string{l.Primary}
		p.Source = path.Join(SharedTemplates, l.Primary)
	case ToolAlias:
		p.Dests = append(p.Dests, l.Aliases...)
		p.Source = l.Primary
		p.SourceInTarget = true
	case ToolCommands:
		p.Dests = []string{l.CommandsDir}
		p.Source = SharedWorkflows
	case ToolSettings:
		p.Dests = []string{l.SettingsFile}
	}
	return p, nil
}

// MustResolve is Resolve for artifacts known at compile time.
func (l Layout) MustResolve(a Artifact) Placement {
	p, err := l.Resolve(a)
	if err != nil {
		panic(err)
	}
	return p
}

// Abs joins a slash-separated relative path onto root.
func Abs(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
