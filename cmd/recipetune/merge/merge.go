package mergecmder

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	"github.com/papercomputeco/recipetune/pkg/dataset"
)

const mergeLongDesc string = `Merge one or more artifact files of one variant into a target.

Incoming records are deduplicated by the SHA-256 of their canonical JSON
against the target and each other, so merging the same file twice adds
nothing. Records already in the target are kept as they are and come first,
then each source in order. The target is written atomically, and left
untouched when nothing is new.

If the target is an artifact listed by a manifest and its hash changes, the
manifest is removed: the merged file is no longer the output of a generation
run and is used as a tracked file from then on.

Examples:
  recipetune merge --variant single run1/single_turn.jsonl run2/single_turn.jsonl
  recipetune merge --variant multi --out data/multi_turn.jsonl extra.jsonl`

const mergeShortDesc string = "Merge artifact files"

type mergeCommander struct {
	variant string
	out     string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.variant, "variant", "v", string(dataset.SingleTurn), "Artifact variant: single or multi")
	cmd.Flags().StringVarP(&cmder.out, "out", "o", "", "Target file (default: the variant's file in the artifacts directory)")

	return cmd
}

func (c *mergeCommander) run(_ context.Context, cmd *cobra.Command, sources []string) error {
	v, err := dataset.ParseVariant(c.variant)
	if err != nil {
		return err
	}

	cfg, err := cliconfig.Load(cmd)
	if err != nil {
		return err
	}
	logger := cliconfig.Logger(cmd)
	defer logger.Sync()

	layout := dataset.Layout{Dir: cfg.Data.ArtifactsDir}
	target := c.out
	if target == "" {
		target = layout.Path(v)
	}

	var res mergeResult
	switch v {
	case dataset.SingleTurn:
		res, err = mergeFiles[dataset.SingleTurnExample](cmd.OutOrStdout(), target, sources)
	default:
		res, err = mergeFiles[dataset.MultiTurnExample](cmd.OutOrStdout(), target, sources)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new records from %d sources (%d already existed) into %s\n",
		res.added, len(sources), res.duped, target)

	return dropStaleManifest(cmd.OutOrStdout(), target, v)
}

// dropStaleManifest removes the manifest next to target when target is one of
// its artifacts and no longer has the recorded hash.
func dropStaleManifest(w io.Writer, target string, v dataset.Variant) error {
	layout := dataset.Layout{Dir: filepath.Dir(target)}
	if filepath.Clean(target) != filepath.Clean(layout.Path(v)) {
		return nil
	}

	m, err := dataset.ReadManifest(layout)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil {
		sum, hashErr := dataset.HashFile(target)
		if hashErr != nil {
			return hashErr
		}
		if a, ok := m.Artifact(v); ok && a.SHA256 == sum {
			return nil
		}
	}

	// unreadable manifests go too: they cannot vouch for the merged file
	if err := dataset.RemoveManifest(layout); err != nil {
		return fmt.Errorf("could not remove manifest: %w", err)
	}
	fmt.Fprintf(w, "Removed %s: artifacts are now tracked files\n", layout.ManifestPath())
	return nil
}

type mergeResult struct {
	added int
	duped int
}

func mergeFiles[T any](w io.Writer, target string, sources []string) (mergeResult, error) {
	var (
		res    mergeResult
		merged []T
		seen   = make(map[[sha256.Size]byte]struct{})
	)

	// the target's own records are kept verbatim, duplicates included
	targetExists := false
	if _, err := os.Stat(target); err == nil {
		targetExists = true
		records, err := dataset.ReadJSONL[T](target)
		if err != nil {
			return res, fmt.Errorf("could not read target %s: %w", target, err)
		}
		for _, r := range records {
			key, err := recordKey(r)
			if err != nil {
				return res, fmt.Errorf("could not encode record from %s: %w", target, err)
			}
			seen[key] = struct{}{}
		}
		merged = records
	} else if !errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("could not stat target %s: %w", target, err)
	}

	add := func(path string) (int, int, error) {
		records, err := dataset.ReadJSONL[T](path)
		if err != nil {
			return 0, 0, err
		}

		var added, duped int
		for _, r := range records {
			key, err := recordKey(r)
			if err != nil {
				return 0, 0, fmt.Errorf("could not encode record from %s: %w", path, err)
			}
			if _, ok := seen[key]; ok {
				duped++
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
			added++
		}
		return added, duped, nil
	}

	for _, src := range sources {
		added, duped, err := add(src)
		if err != nil {
			return res, fmt.Errorf("could not read source %s: %w", src, err)
		}
		res.added += added
		res.duped += duped

		fmt.Fprintf(w, "  %s: %d new, %d already existed\n", src, added, duped)
	}

	if targetExists && res.added == 0 {
		return res, nil
	}
	if err := dataset.WriteJSONL(target, merged); err != nil {
		return res, fmt.Errorf("could not write %s: %w", target, err)
	}
	return res, nil
}

func recordKey(r any) ([sha256.Size]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}
