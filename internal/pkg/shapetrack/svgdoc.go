package shapetrack

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	stdstrconv "strconv"
	"strings"

	"github.com/tdewolff/parse/v2/strconv"
)

// circleKappa places cubic control points so four segments approximate a
// quarter circle each.
const circleKappa = 0.552284749831

// ExtractPaths reads an SVG document and returns a path description for every
// drawable outline it contains: path, polygon, polyline, circle, ellipse and
// rect elements, in document order and without duplicates. Raster content is
// ignored.
func ExtractPaths(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		out  []string
		seen = map[string]bool{}
		root bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read svg: %w", err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !root {
			if el.Name.Local != "svg" {
				return nil, fmt.Errorf("read svg: root element is <%s>", el.Name.Local)
			}
			root = true
			continue
		}

		d, err := elementPath(el)
		if err != nil {
			return nil, err
		}
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}

	if !root {
		return nil, fmt.Errorf("read svg: no svg element")
	}
	return out, nil
}

// JoinPaths concatenates path descriptions into one. Each description starts
// with a move-to, so the result draws every outline in sequence.
func JoinPaths(paths []string) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func elementPath(el xml.StartElement) (string, error) {
	attr := func(name string) string {
		for _, a := range el.Attr {
			if a.Name.Local == name {
				return strings.TrimSpace(a.Value)
			}
		}
		return ""
	}

	switch el.Name.Local {
	case "path":
		return attr("d"), nil

	case "polygon", "polyline":
		nums, err := numberList(attr("points"))
		if err != nil {
			return "", fmt.Errorf("read svg <%s>: %w", el.Name.Local, err)
		}
		if len(nums) < 4 {
			return "", nil
		}
		var sb strings.Builder
		for i := 0; i+1 < len(nums); i += 2 {
			if i == 0 {
				sb.WriteString("M ")
			} else {
				sb.WriteString(" L ")
			}
			sb.WriteString(num(nums[i]))
			sb.WriteByte(' ')
			sb.WriteString(num(nums[i+1]))
		}
		if el.Name.Local == "polygon" {
			sb.WriteString(" Z")
		}
		return sb.String(), nil

	case "circle":
		v, err := numbers(attr, "cx", "cy", "r")
		if err != nil {
			return "", fmt.Errorf("read svg <circle>: %w", err)
		}
		if v[2] <= 0 {
			return "", nil
		}
		return ellipsePath(v[0], v[1], v[2], v[2]), nil

	case "ellipse":
		v, err := numbers(attr, "cx", "cy", "rx", "ry")
		if err != nil {
			return "", fmt.Errorf("read svg <ellipse>: %w", err)
		}
		if v[2] <= 0 || v[3] <= 0 {
			return "", nil
		}
		return ellipsePath(v[0], v[1], v[2], v[3]), nil

	case "rect":
		v, err := numbers(attr, "x", "y", "width", "height")
		if err != nil {
			return "", fmt.Errorf("read svg <rect>: %w", err)
		}
		x, y, w, h := v[0], v[1], v[2], v[3]
		if w <= 0 || h <= 0 {
			return "", nil
		}
		return fmt.Sprintf("M %s %s L %s %s L %s %s L %s %s Z",
			num(x), num(y), num(x+w), num(y), num(x+w), num(y+h), num(x), num(y+h)), nil
	}
	return "", nil
}

func ellipsePath(cx, cy, rx, ry float64) string {
	kx, ky := rx*circleKappa, ry*circleKappa
	return fmt.Sprintf("M %s %s C %s %s %s %s %s %s C %s %s %s %s %s %s C %s %s %s %s %s %s C %s %s %s %s %s %s Z",
		num(cx), num(cy-ry),
		num(cx+kx), num(cy-ry), num(cx+rx), num(cy-ky), num(cx+rx), num(cy),
		num(cx+rx), num(cy+ky), num(cx+kx), num(cy+ry), num(cx), num(cy+ry),
		num(cx-kx), num(cy+ry), num(cx-rx), num(cy+ky), num(cx-rx), num(cy),
		num(cx-rx), num(cy-ky), num(cx-kx), num(cy-ry), num(cx), num(cy-ry),
	)
}

// numbers parses the named attributes; a missing attribute reads as 0.
func numbers(attr func(string) string, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, n := range names {
		s := strings.TrimSuffix(attr(n), "px")
		if s == "" {
			continue
		}
		v, m := strconv.ParseFloat([]byte(s))
		if m != len(s) {
			return nil, fmt.Errorf("attribute %s: malformed number %q", n, s)
		}
		out[i] = v
	}
	return out, nil
}

func numberList(s string) ([]float64, error) {
	b := []byte(s)
	var out []float64
	for i := skipSeparators(b, 0); i < len(b); i = skipSeparators(b, i) {
		v, m := strconv.ParseFloat(b[i:])
		if m == 0 {
			return nil, fmt.Errorf("malformed number %q at offset %d", tokenAt(b, i), i)
		}
		out = append(out, v)
		i += m
	}
	return out, nil
}

func num(v float64) string {
	return stdstrconv.FormatFloat(v, 'f', -1, 64)
}
