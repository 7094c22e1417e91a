// dzbtool is a CLI utility for inspecting DZB collision meshes.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/Faultbox/dzbkit/internal/config"
	"github.com/Faultbox/dzbkit/internal/logger"
	"github.com/Faultbox/dzbkit/pkg/dzb"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := append(cfg.CodecOptions(), dzb.WithLogger(logger.Named("dzb")))

	command := args[0]
	args = args[1:]

	var code int
	switch command {
	case "info":
		code = cmdInfo(args, opts)
	case "tree":
		code = cmdTree(args, opts)
	case "verify":
		code = cmdVerify(args, opts, cfg)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = 1
	}

	logger.Sync()
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`dzbtool - DZB collision mesh utility

Usage:
  dzbtool [flags] <command> [files...]

Commands:
  info <file.dzb>                 Show header counts, bounds and digest
  tree <file.dzb>                 Print the group tree
  verify <file.dzb>...            Check that files survive parse, save, parse

Flags:
  -config <path>   Config file (default ./dzbtool.yaml, then user config dir)
  -debug           Enable debug logging
  -legacy-groups   Write groups in legacy mode
  -raw-names       Do not decode group names from Shift-JIS
  -workers <n>     Files verified concurrently

Examples:
  dzbtool info Room0.dzb
  dzbtool -raw-names tree Stage.dzb
  dzbtool -workers 8 verify dzb/*.dzb`)
}

func cmdInfo(args []string, opts []dzb.Option) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dzbtool info <file.dzb>")
		return 1
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	mesh, err := dzb.Parse(data, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", args[0], err)
		return 1
	}

	digest := blake2b.Sum256(data)
	lo, hi := mesh.Bounds()

	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("Size:       %s\n", humanize.Bytes(uint64(len(data))))
	fmt.Printf("BLAKE2b:    %s\n", hex.EncodeToString(digest[:]))
	fmt.Printf("Vertices:   %s\n", humanize.Comma(int64(len(mesh.Vertices))))
	fmt.Printf("Faces:      %s\n", humanize.Comma(int64(len(mesh.Faces))))
	fmt.Printf("Groups:     %d\n", len(mesh.Groups))
	fmt.Printf("Properties: %d\n", len(mesh.Properties))
	fmt.Printf("Octree:     %d indices, %d nodes (not decoded)\n",
		mesh.NumOctreeIndices, mesh.NumOctreeNodes)
	fmt.Printf("Bounds:     (%.2f, %.2f, %.2f) - (%.2f, %.2f, %.2f)\n",
		lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	center := lo.Add(hi).Scale(0.5)
	fmt.Printf("Center:     (%.2f, %.2f, %.2f), extent %.2f\n",
		center.X, center.Y, center.Z, lo.Distance(hi))
	if bad := nonFiniteVertices(mesh); bad > 0 {
		fmt.Printf("Warning:    %d vertices with NaN or infinite coordinates\n", bad)
	}
	fmt.Printf("In memory:  %s\n", humanize.Bytes(uint64(size.Of(mesh))))

	logger.Debug("info",
		zap.String("file", args[0]),
		zap.Uint32("unknown1", mesh.Unknown1))
	return 0
}

func nonFiniteVertices(mesh *dzb.DZB) int {
	n := 0
	for _, v := range mesh.Vertices {
		if !v.Pos().IsFinite() {
			n++
		}
	}
	return n
}

func cmdTree(args []string, opts []dzb.Option) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: dzbtool tree <file.dzb>")
		return 1
	}

	mesh, err := dzb.ParseFile(args[0], opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	faces := make(map[*dzb.Group]int, len(mesh.Groups))
	for _, f := range mesh.Faces {
		faces[f.Group]++
	}

	err = mesh.Walk(func(i, depth int) error {
		g := mesh.Groups[i]
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), describeGroup(i, g, faces[g]))
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func describeGroup(i int, g *dzb.Group, faces int) string {
	var b strings.Builder
	name := g.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&b, "[%d] %s room=%d faces=%d", i, name, g.RoomIndex, faces)
	if g.IsWater {
		b.WriteString(" water")
	}
	if g.IsLava {
		b.WriteString(" lava")
	}
	if g.SoundID != 0 {
		fmt.Fprintf(&b, " sound=%d", g.SoundID)
	}
	return b.String()
}
