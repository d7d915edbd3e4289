// Command regioncheck loads a region table, validates it against a map
// image and prints it. It exits non-zero when the table would be rejected
// at desk startup.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/logger"
	"github.com/freeeve/orderdesk/internal/regions"
	"github.com/freeeve/orderdesk/internal/render"
)

const (
	exitOK     = 0
	exitConfig = 1
	exitUsage  = 2
)

func main() {
	logger.Init(logger.Options{Level: os.Getenv("LOG_LEVEL")})
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("regioncheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		tablePath string
		mapPath   string
		resolve   string
		jsonOut   bool
	)
	fs.StringVar(&tablePath, "table", "", "Region table JSON (default: embedded standard table)")
	fs.StringVar(&mapPath, "map", "", "Map image whose bounds every centre must lie within")
	fs.StringVar(&resolve, "resolve", "", "Also resolve a point, e.g. 240,480")
	fs.BoolVar(&jsonOut, "json", false, "Print the table as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	var bounds image.Rectangle
	if mapPath != "" {
		img, err := render.LoadBaseMap(mapPath)
		if err != nil {
			log.Error().Err(err).Str("map", mapPath).Msg("Cannot load map image")
			return exitConfig
		}
		bounds = img.Bounds()
	}

	var (
		idx *regions.Index
		err error
	)
	if tablePath == "" {
		idx, err = regions.Standard(bounds)
	} else {
		idx, err = regions.LoadFile(tablePath, bounds)
	}
	if err != nil {
		var cfgErr *regions.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error().Str("region", cfgErr.Region).Str("reason", cfgErr.Reason).Msg("Region table rejected")
		} else {
			log.Error().Err(err).Msg("Region table rejected")
		}
		return exitConfig
	}

	if jsonOut {
		if err := printJSON(stdout, idx); err != nil {
			log.Error().Err(err).Msg("Write failed")
			return exitConfig
		}
	} else {
		printTable(stdout, idx)
	}

	if resolve != "" {
		pt, err := parsePoint(resolve)
		if err != nil {
			fmt.Fprintf(stderr, "regioncheck: -resolve: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(stdout, "%d,%d -> %s\n", pt.X, pt.Y, idx.Resolve(pt).Name)
	}

	log.Info().Int("regions", idx.Len()).Str("bounds", bounds.String()).Msg("Region table OK")
	return exitOK
}

func printTable(w io.Writer, idx *regions.Index) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tX\tY")
	for _, r := range idx.Regions() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Name, r.Center.X, r.Center.Y)
	}
	tw.Flush()
}

type tableEntry struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func printJSON(w io.Writer, idx *regions.Index) error {
	var out struct {
		Regions []tableEntry `json:"regions"`
	}
	for _, r := range idx.Regions() {
		out.Regions = append(out.Regions, tableEntry{Name: r.Name, X: r.Center.X, Y: r.Center.Y})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parsePoint(s string) (image.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return image.Point{}, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return image.Point{}, fmt.Errorf("bad y: %w", err)
	}
	return image.Pt(x, y), nil
}
