package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/dzbkit/internal/config"
	"github.com/Faultbox/dzbkit/internal/logger"
	"github.com/Faultbox/dzbkit/pkg/dzb"
)

var errUnstableSave = errors.New("saving the reparsed mesh produced different bytes")

// verifyResult is the outcome of one file.
type verifyResult struct {
	Path   string
	Size   int
	Saved  int
	Digest [blake2b.Size256]byte
	Err    error
}

func cmdVerify(args []string, opts []dzb.Option, cfg *config.Config) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dzbtool verify <file.dzb>...")
		return 1
	}

	start := time.Now()
	results := verifyFiles(args, opts, cfg.Codec.LegacyGroupWrite, cfg.WorkerLimit())

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Printf("ok   %s  %s -> %s  %s\n", r.Path,
			humanize.Bytes(uint64(r.Size)), humanize.Bytes(uint64(r.Saved)),
			hex.EncodeToString(r.Digest[:8]))
	}

	logger.Info("verify finished",
		zap.Int("files", len(results)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	if failed > 0 {
		fmt.Printf("%d of %d files failed\n", failed, len(results))
		return 1
	}
	return 0
}

// verifyFiles checks every path with at most workers files in flight. Results
// keep the order of paths; a failing file does not stop the others.
func verifyFiles(paths []string, opts []dzb.Option, legacy bool, workers int) []verifyResult {
	results := make([]verifyResult, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = verifyFile(path, opts, legacy)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func verifyFile(path string, opts []dzb.Option, legacy bool) verifyResult {
	r := verifyResult{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		r.Err = err
		return r
	}
	r.Size = len(data)

	saved, err := verifyImage(data, opts, legacy)
	if err != nil {
		r.Err = err
		logger.Debug("verify failed", zap.String("file", path), zap.Error(err))
		return r
	}
	r.Saved = len(saved)
	r.Digest = blake2b.Sum256(saved)
	return r
}

// verifyImage parses data, saves it, parses the result and compares the two
// meshes. It also checks that saving the reparsed mesh is byte-stable. The
// first saved image is returned.
func verifyImage(data []byte, opts []dzb.Option, legacy bool) ([]byte, error) {
	first, err := dzb.Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	saved, err := first.Save()
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	second, err := dzb.Parse(saved, opts...)
	if err != nil {
		return nil, fmt.Errorf("reparse: %w", err)
	}
	if err := compareMeshes(first, second, legacy); err != nil {
		return nil, err
	}

	again, err := second.Save()
	if err != nil {
		return nil, fmt.Errorf("save reparsed: %w", err)
	}
	if !bytes.Equal(saved, again) {
		return nil, errUnstableSave
	}
	return saved, nil
}

func compareMeshes(a, b *dzb.DZB, legacy bool) error {
	if err := sameCount("vertices", len(a.Vertices), len(b.Vertices)); err != nil {
		return err
	}
	if err := sameCount("faces", len(a.Faces), len(b.Faces)); err != nil {
		return err
	}
	if err := sameCount("groups", len(a.Groups), len(b.Groups)); err != nil {
		return err
	}
	if err := sameCount("properties", len(a.Properties), len(b.Properties)); err != nil {
		return err
	}

	for i, v := range a.Vertices {
		w := b.Vertices[i]
		if !sameFloat(v.X, w.X) || !sameFloat(v.Y, w.Y) || !sameFloat(v.Z, w.Z) {
			return fmt.Errorf("vertex %d: %v != %v", i, *v, *w)
		}
	}
	for i, f := range a.Faces {
		h := b.Faces[i]
		if f.VertexIndices != h.VertexIndices || f.PropertyIndex != h.PropertyIndex || f.GroupIndex != h.GroupIndex {
			return fmt.Errorf("face %d: indices %v/%d/%d != %v/%d/%d", i,
				f.VertexIndices, f.PropertyIndex, f.GroupIndex,
				h.VertexIndices, h.PropertyIndex, h.GroupIndex)
		}
	}
	for i, p := range a.Properties {
		if *p != *b.Properties[i] {
			return fmt.Errorf("property %d: %+v != %+v", i, *p, *b.Properties[i])
		}
	}
	for i, g := range a.Groups {
		h := b.Groups[i]
		if legacy {
			if g.RoomIndex != h.RoomIndex || g.Info() != h.Info() {
				return fmt.Errorf("group %d: room %d info %#x != room %d info %#x",
					i, g.RoomIndex, g.Info(), h.RoomIndex, h.Info())
			}
			continue
		}
		if *g != *h {
			return fmt.Errorf("group %d (%q): fields differ after round trip", i, g.Name)
		}
	}
	return nil
}

func sameCount(what string, a, b int) error {
	if a != b {
		return fmt.Errorf("%s: %d before save, %d after", what, a, b)
	}
	return nil
}

func sameFloat(a, b float32) bool {
	return math.Float32bits(a) == math.Float32bits(b)
}
