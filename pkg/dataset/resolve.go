package dataset

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Provenance says where the artifacts handed to fine-tuning came from.
type Provenance string

const (
	// ProvenanceGenerated artifacts match the manifest of a completed run.
	ProvenanceGenerated Provenance = "generated"

	// ProvenanceTracked artifacts were supplied without a manifest.
	ProvenanceTracked Provenance = "tracked"
)

var (
	ErrArtifactMissing  = errors.New("artifact missing")
	ErrManifestMismatch = errors.New("manifest does not match artifacts")
)

// Handoff is the verified set of artifacts fine-tuning reads.
type Handoff struct {
	Layout     Layout
	Provenance Provenance

	// Manifest is nil for tracked artifacts.
	Manifest *Manifest
}

// Path returns the artifact path for v.
func (h *Handoff) Path(v Variant) string {
	return h.Layout.Path(v)
}

// Resolve locates the artifacts in layout and checks them against the run
// manifest when there is one. It never reads the source recipe CSV.
func Resolve(layout Layout, logger *zap.Logger) (*Handoff, error) {
	for _, v := range Variants {
		path := layout.Path(v)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s (run generate first or supply the file)", ErrArtifactMissing, path)
			}
			return nil, fmt.Errorf("could not stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrArtifactMissing, path)
		}
	}

	m, err := ReadManifest(layout)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("no manifest found, using tracked artifacts as-is",
			zap.String("dir", layout.Dir),
		)
		return &Handoff{Layout: layout, Provenance: ProvenanceTracked}, nil
	}
	if err != nil {
		return nil, err
	}

	for _, v := range Variants {
		if err := verify(layout, m, v); err != nil {
			return nil, err
		}
	}

	logger.Info("verified generated artifacts",
		zap.String("run_id", m.RunID),
		zap.String("dir", layout.Dir),
	)
	return &Handoff{Layout: layout, Provenance: ProvenanceGenerated, Manifest: m}, nil
}

func verify(layout Layout, m *Manifest, v Variant) error {
	entry, ok := m.Artifact(v)
	if !ok {
		return fmt.Errorf("%w: no entry for %s", ErrManifestMismatch, v)
	}

	path := layout.Path(v)
	sum, err := HashFile(path)
	if err != nil {
		return err
	}
	if sum != entry.SHA256 {
		return fmt.Errorf("%w: %s has sha256 %s, manifest says %s", ErrManifestMismatch, path, sum, entry.SHA256)
	}

	n, err := CountRecords(path)
	if err != nil {
		return fmt.Errorf("could not count %s: %w", path, err)
	}
	if n != entry.Generated {
		return fmt.Errorf("%w: %s has %d records, manifest says %d", ErrManifestMismatch, path, n, entry.Generated)
	}
	return nil
}
