package shapetrack

import (
	"fmt"
	"time"
)

const (
	// MinStep is the smallest gap between consecutive points. GPX stores
	// whole seconds, so shorter steps would repeat timestamps.
	MinStep = time.Second
	// MaxDuration bounds the total track duration.
	MaxDuration = 7 * 24 * time.Hour
)

// Params are the numeric inputs of a conversion.
type Params struct {
	CenterLat   float64
	CenterLon   float64
	ScaleMeters float64
	NumPoints   int
	Start       time.Time
	Duration    time.Duration
	CurveSteps  int // 0 selects DefaultCurveSteps
}

// Validate checks every numeric parameter and returns the first violation.
func (p Params) Validate() error {
	if p.NumPoints < 2 {
		return invalid("num_points", p.NumPoints, "must be at least 2")
	}
	if err := validateScale(p.ScaleMeters); err != nil {
		return err
	}
	if err := validateDuration(p.Duration, p.NumPoints); err != nil {
		return err
	}
	if p.Duration > MaxDuration {
		return invalid("duration", p.Duration, fmt.Sprintf("must not exceed %s", MaxDuration))
	}
	if int64(p.NumPoints-1) > int64(p.Duration/MinStep) {
		return invalid("duration", p.Duration, fmt.Sprintf("needs at least %s per point for %d points", MinStep, p.NumPoints))
	}
	if err := validateCenter(p.CenterLat, p.CenterLon); err != nil {
		return err
	}
	if p.CurveSteps < 0 {
		return invalid("curve_steps", p.CurveSteps, "must not be negative")
	}
	return nil
}

// Convert turns a path description into a timestamped track:
// parse, sample, normalize, project, then stamp. It is all-or-nothing and
// returns the first error from any stage.
func Convert(desc string, p Params) (Track, error) {
	if err := p.Validate(); err != nil {
		return Track{}, err
	}

	cmds, err := Parse(desc)
	if err != nil {
		return Track{}, err
	}

	steps := p.CurveSteps
	if steps == 0 {
		steps = DefaultCurveSteps
	}
	pts, err := Sample(cmds, p.NumPoints, WithCurveSteps(steps))
	if err != nil {
		return Track{}, err
	}

	norm, err := Normalize(pts)
	if err != nil {
		return Track{}, err
	}

	geo, err := Project(norm, p.CenterLat, p.CenterLon, p.ScaleMeters)
	if err != nil {
		return Track{}, err
	}

	return ToTrack(geo, p.Start, p.Duration)
}
