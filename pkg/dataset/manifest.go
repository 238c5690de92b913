package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	SingleTurnFile = "single_turn.jsonl"
	MultiTurnFile  = "multi_turn.jsonl"
	ManifestFile   = "manifest.json"
)

// Layout locates the artifacts of one data directory.
type Layout struct {
	Dir string
}

// Path returns the artifact path for a variant.
func (l Layout) Path(v Variant) string {
	if v == MultiTurn {
		return filepath.Join(l.Dir, MultiTurnFile)
	}
	return filepath.Join(l.Dir, SingleTurnFile)
}

// ManifestPath returns the path of the run manifest.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Dir, ManifestFile)
}

// Manifest records a completed data generation run.
type Manifest struct {
	RunID     string     `json:"run_id"`
	Seed      uint64     `json:"seed"`
	Recipes   string     `json:"recipes"`
	CreatedAt time.Time  `json:"created_at"`
	Artifacts []Artifact `json:"artifacts"`
}

// Artifact describes one JSON-lines file of a run.
type Artifact struct {
	Variant   Variant `json:"variant"`
	Path      string  `json:"path"`
	Requested int     `json:"requested"`
	Generated int     `json:"generated"`
	SHA256    string  `json:"sha256"`
}

// Artifact returns the entry for v.
func (m *Manifest) Artifact(v Variant) (Artifact, bool) {
	for _, a := range m.Artifacts {
		if a.Variant == v {
			return a, true
		}
	}
	return Artifact{}, false
}

// DescribeArtifact hashes and counts a written artifact. Path is stored
// relative to the data directory.
func DescribeArtifact(layout Layout, v Variant, requested int) (Artifact, error) {
	path := layout.Path(v)
	sum, err := HashFile(path)
	if err != nil {
		return Artifact{}, err
	}
	n, err := CountRecords(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("could not count %s: %w", path, err)
	}
	return Artifact{
		Variant:   v,
		Path:      filepath.Base(path),
		Requested: requested,
		Generated: n,
		SHA256:    sum,
	}, nil
}

// WriteManifest writes m atomically.
func WriteManifest(layout Layout, m *Manifest) error {
	return WriteJSON(layout.ManifestPath(), m)
}

// ReadManifest reads the manifest of layout. A missing manifest returns an
// error matching os.ErrNotExist.
func ReadManifest(layout Layout) (*Manifest, error) {
	data, err := os.ReadFile(layout.ManifestPath())
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", layout.ManifestPath(), err)
	}
	return &m, nil
}

// RemoveManifest deletes a stale manifest so that a partially rewritten data
// directory is never mistaken for a completed run.
func RemoveManifest(layout Layout) error {
	err := os.Remove(layout.ManifestPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("could not hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
