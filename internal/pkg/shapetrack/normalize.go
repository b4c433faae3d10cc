package shapetrack

import "math"

// Normalize centres points on the origin and scales them uniformly so the
// longer side of their bounding box spans [-1, 1]. Y is flipped: path-local
// Y grows downwards, normalized Y grows northwards.
func Normalize(points []Point) ([]Point, error) {
	if len(points) == 0 {
		return nil, &DegenerateShapeError{}
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	w, h := maxX-minX, maxY-minY
	if w == 0 && h == 0 {
		return nil, &DegenerateShapeError{Points: len(points), Width: w, Height: h}
	}

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	s := 2 / math.Max(w, h)

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: (p.X - cx) * s, Y: (cy - p.Y) * s}
	}
	return out, nil
}
