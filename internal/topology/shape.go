package topology

import (
	"path/filepath"

	"github.com/agentsync-labs/agentsync/internal/platform"
)

// Shape is a structure the rules directory has had in some release.
type Shape int

const (
	// ShapeAbsent means no rules entry exists.
	ShapeAbsent Shape = iota
	// ShapeLegacyLink is the original single symlink to the shared rules.
	ShapeLegacyLink
	// ShapeForeign is a regular file sitting where the directory belongs.
	ShapeForeign
	// ShapeDirectory is a real directory without a shared sublink.
	ShapeDirectory
	// ShapeHybrid is the current shape: a local directory holding a
	// "shared" symlink.
	ShapeHybrid
)

func (s Shape) String() string {
	switch s {
	case ShapeAbsent:
		return "absent"
	case ShapeLegacyLink:
		return "legacy-link"
	case ShapeForeign:
		return "foreign"
	case ShapeDirectory:
		return "directory"
	case ShapeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Step is one action in a rules migration plan.
type Step int

const (
	// StepRemoveLegacyLink deletes the old single symlink. A link owns no
	// data, so no backup is taken.
	StepRemoveLegacyLink Step = iota
	// StepBackupForeign moves a foreign file aside through the backup guard.
	StepBackupForeign
	// StepCreateDir creates the local rules directory.
	StepCreateDir
	// StepLinkShared creates or refreshes the "shared" sublink.
	StepLinkShared
	// StepEnsureReadme writes the local README stub if absent.
	StepEnsureReadme
)

func (s Step) String() string {
	switch s {
	case StepRemoveLegacyLink:
		return "remove-legacy-link"
	case StepBackupForeign:
		return "backup-foreign"
	case StepCreateDir:
		return "create-dir"
	case StepLinkShared:
		return "link-shared"
	case StepEnsureReadme:
		return "ensure-readme"
	default:
		return "unknown"
	}
}

// MigrationPlan returns the steps that turn a rules entry of the given shape
// into the hybrid shape. Every plan ends with the link and README steps, so
// applying it to an already-hybrid directory only refreshes the sublink.
func MigrationPlan(s Shape) []Step {
	tail := []Step{StepLinkShared, StepEnsureReadme}
	switch s {
	case ShapeAbsent:
		return append([]Step{StepCreateDir}, tail...)
	case ShapeLegacyLink:
		return append([]Step{StepRemoveLegacyLink, StepCreateDir}, tail...)
	case ShapeForeign:
		return append([]Step{StepBackupForeign, StepCreateDir}, tail...)
	default:
		return tail
	}
}

// DetectRulesShape inspects the rules entry at rulesPath without modifying it.
func DetectRulesShape(rulesPath string) (Shape, error) {
	t, err := platform.Inspect(rulesPath)
	if err != nil {
		return ShapeAbsent, err
	}
	switch t {
	case platform.EntryMissing:
		return ShapeAbsent, nil
	case platform.EntrySymlink:
		return ShapeLegacyLink, nil
	case platform.EntryFile:
		return ShapeForeign, nil
	}

	shared, err := platform.Inspect(filepath.Join(rulesPath, "shared"))
	if err != nil {
		return ShapeDirectory, err
	}
	if shared == platform.EntrySymlink {
		return ShapeHybrid, nil
	}
	return ShapeDirectory, nil
}
