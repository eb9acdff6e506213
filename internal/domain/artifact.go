package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage names one step of the image pipeline. The value doubles as the
// directory name inside the storage root.
type Stage string

const (
	StageUploaded          Stage = "uploads"
	StageOriginalBackup    Stage = "originals"
	StageResized           Stage = "resized"
	StageBackgroundRemoved Stage = "no_bg"
	StageGenerated         Stage = "generated"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageUploaded,
	StageOriginalBackup,
	StageResized,
	StageBackgroundRemoved,
	StageGenerated,
}

// ParseStage accepts the directory name or a few friendly aliases.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uploads", "uploaded", "upload":
		return StageUploaded, nil
	case "originals", "original", "original-backup", "backup":
		return StageOriginalBackup, nil
	case "resized", "processed", "normalized":
		return StageResized, nil
	case "no_bg", "no-bg", "nobg", "background-removed":
		return StageBackgroundRemoved, nil
	case "generated", "generations":
		return StageGenerated, nil
	}
	return "", Validationf("unknown stage %q", s)
}

// ArtifactID links every derived file back to its base image.
type ArtifactID string

// Artifact is one file at one pipeline stage.
type Artifact struct {
	Filename  string    `json:"filename"`
	Stage     Stage     `json:"stage"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	Format    string    `json:"format,omitempty"`
	ModTime   time.Time `json:"modified_at"`
}

// Filename suffixes linking derived artifacts to their base image. The
// convention is kept for on-disk compatibility; ArtifactID is the stable link.
const (
	ProcessedSuffix = "_processed.jpg"
	NoBgSuffix      = "_no_bg.png"
	MetaSuffix      = "_meta.json"
)

// BaseName strips the extension and any known derived suffix.
func BaseName(filename string) string {
	name := strings.TrimSpace(filename)
	for _, suffix := range []string{ProcessedSuffix, NoBgSuffix, MetaSuffix} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

func ProcessedName(base string) string { return base + ProcessedSuffix }
func NoBgName(base string) string      { return base + NoBgSuffix }
func MetaName(base string) string      { return base + MetaSuffix }

// HumanSize renders a byte count the way the catalog listing shows it.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
