// Command svg2gpx draws a path, a catalog shape or an SVG file as a GPX track
// without any backing services.
//
//	svg2gpx -shape chalkin -lat 43.263 -lon -2.935 -o logo.gpx
//	svg2gpx -path "M 0 0 L 100 0 L 50 80 Z" -points 50
//	svg2gpx -svg hold.svg -scale 250 -duration 45m
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack/catalog"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "svg2gpx:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("svg2gpx", flag.ContinueOnError)
	var (
		path     = fs.String("path", "", "path description (M, L, H, V, C, Q, Z)")
		shape    = fs.String("shape", "", "built-in shape slug")
		svgFile  = fs.String("svg", "", "SVG file to trace")
		catFile  = fs.String("catalog", "", "shape catalog YAML (default: built-in)")
		lat      = fs.Float64("lat", 40.416775, "center latitude")
		lon      = fs.Float64("lon", -3.703790, "center longitude")
		scale    = fs.Float64("scale", 100, "size of the longer side in metres")
		points   = fs.Int("points", 300, "number of track points")
		duration = fs.Duration("duration", time.Hour, "track duration")
		start    = fs.String("start", "", "RFC 3339 start time (default now)")
		steps    = fs.Int("steps", shapetrack.DefaultCurveSteps, "line segments per curve")
		name     = fs.String("name", "", "track name")
		desc     = fs.String("desc", "", "track description")
		out      = fs.String("o", "-", "output file, - for stdout")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	sources := 0
	for _, s := range []string{*path, *shape, *svgFile} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of -path, -shape and -svg is required")
	}

	d, trackName, err := resolve(*path, *shape, *svgFile, *catFile)
	if err != nil {
		return err
	}
	if *name != "" {
		trackName = *name
	}

	t0 := time.Now().UTC().Truncate(time.Second)
	if *start != "" {
		if t0, err = time.Parse(time.RFC3339, *start); err != nil {
			return fmt.Errorf("-start: %w", err)
		}
	}

	track, err := shapetrack.Convert(d, shapetrack.Params{
		CenterLat:   *lat,
		CenterLon:   *lon,
		ScaleMeters: *scale,
		NumPoints:   *points,
		Start:       t0,
		Duration:    *duration,
		CurveSteps:  *steps,
	})
	if err != nil {
		return err
	}

	data, err := shapetrack.EncodeGPX(track, shapetrack.Metadata{
		Name:        trackName,
		Description: *desc,
		Time:        t0,
	})
	if err != nil {
		return err
	}

	if *out == "-" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func resolve(path, shape, svgFile, catFile string) (desc, name string, err error) {
	switch {
	case path != "":
		return path, "Track", nil

	case shape != "":
		cat := catalog.Default()
		if catFile != "" {
			if cat, err = catalog.Load(catFile); err != nil {
				return "", "", err
			}
		}
		e, ok := cat.Get(shape)
		if !ok {
			return "", "", fmt.Errorf("unknown shape %q", shape)
		}
		return e.Path, e.Name, nil

	default:
		f, err := os.Open(svgFile)
		if err != nil {
			return "", "", err
		}
		defer f.Close()
		paths, err := shapetrack.ExtractPaths(f)
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", svgFile, err)
		}
		if len(paths) == 0 {
			return "", "", fmt.Errorf("%s: no drawable elements", svgFile)
		}
		base := svgFile[strings.LastIndexAny(svgFile, `/\`)+1:]
		return shapetrack.JoinPaths(paths), strings.TrimSuffix(base, ".svg"), nil
	}
}
