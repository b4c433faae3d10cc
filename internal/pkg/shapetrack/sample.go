package shapetrack

import "math"

// DefaultCurveSteps is the number of evaluations per curve segment.
const DefaultCurveSteps = 8

type sampleConfig struct {
	curveSteps int
}

// SampleOption tunes Sample.
type SampleOption func(*sampleConfig)

// WithCurveSteps sets how many evenly spaced parameter values are evaluated
// on each curve segment.
func WithCurveSteps(n int) SampleOption {
	return func(c *sampleConfig) { c.curveSteps = n }
}

// Sample walks cmds and returns exactly target points in traversal order.
// Curves are evaluated at t = k/steps for k = 1..steps; close-path appends the
// most recent move-to point. When the raw count differs from target the
// sequence is resampled proportionally to arc length, keeping the first and
// last raw points.
func Sample(cmds []Command, target int, opts ...SampleOption) ([]Point, error) {
	if target < 2 {
		return nil, invalid("num_points", target, "must be at least 2")
	}
	cfg := sampleConfig{curveSteps: DefaultCurveSteps}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.curveSteps < 1 {
		return nil, invalid("curve_steps", cfg.curveSteps, "must be at least 1")
	}
	if len(cmds) == 0 {
		return nil, &ParseError{Reason: "path has no commands"}
	}

	raw := flatten(cmds, cfg.curveSteps)
	if len(raw) == 0 {
		return nil, &ParseError{Reason: "path produced no points"}
	}
	if len(raw) == target {
		return raw, nil
	}
	return resample(raw, target), nil
}

func flatten(cmds []Command, steps int) []Point {
	var (
		pts        []Point
		cur, start Point
	)
	for _, c := range cmds {
		switch c.Op {
		case MoveTo:
			cur = c.Args[0]
			start = cur
			pts = append(pts, cur)
		case LineTo:
			cur = c.Args[0]
			pts = append(pts, cur)
		case CubicTo:
			for k := 1; k <= steps; k++ {
				pts = append(pts, cubicAt(cur, c.Args[0], c.Args[1], c.Args[2], float64(k)/float64(steps)))
			}
			cur = c.Args[2]
		case QuadTo:
			for k := 1; k <= steps; k++ {
				pts = append(pts, quadAt(cur, c.Args[0], c.Args[1], float64(k)/float64(steps)))
			}
			cur = c.Args[1]
		case ClosePath:
			pts = append(pts, start)
			cur = start
		}
	}
	return pts
}

// cubicAt evaluates (1-t)^3*P0 + 3(1-t)^2*t*P1 + 3(1-t)*t^2*P2 + t^3*P3.
func cubicAt(p0, p1, p2, p3 Point, t float64) Point {
	mt := 1 - t
	mt2 := mt * mt
	mt3 := mt2 * mt
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: mt3*p0.X + 3*mt2*t*p1.X + 3*mt*t2*p2.X + t3*p3.X,
		Y: mt3*p0.Y + 3*mt2*t*p1.Y + 3*mt*t2*p2.Y + t3*p3.Y,
	}
}

// quadAt evaluates (1-t)^2*P0 + 2(1-t)t*P1 + t^2*P2.
func quadAt(p0, p1, p2 Point, t float64) Point {
	mt := 1 - t
	return Point{
		X: mt*mt*p0.X + 2*mt*t*p1.X + t*t*p2.X,
		Y: mt*mt*p0.Y + 2*mt*t*p1.Y + t*t*p2.Y,
	}
}

func resample(raw []Point, target int) []Point {
	out := make([]Point, target)
	last := len(raw) - 1

	cum := make([]float64, len(raw))
	for i := 1; i < len(raw); i++ {
		cum[i] = cum[i-1] + math.Hypot(raw[i].X-raw[i-1].X, raw[i].Y-raw[i-1].Y)
	}
	total := cum[last]

	if total == 0 {
		for i := range out {
			out[i] = raw[int(math.Round(float64(i)*float64(last)/float64(target-1)))]
		}
		return out
	}

	j := 0
	for i := 0; i < target-1; i++ {
		d := total * float64(i) / float64(target-1)
		for j < last-1 && cum[j+1] < d {
			j++
		}
		seg := cum[j+1] - cum[j]
		if seg == 0 {
			out[i] = raw[j]
			continue
		}
		t := (d - cum[j]) / seg
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		out[i] = Point{
			X: raw[j].X + (raw[j+1].X-raw[j].X)*t,
			Y: raw[j].Y + (raw[j+1].Y-raw[j].Y)*t,
		}
	}
	out[target-1] = raw[last]
	return out
}
