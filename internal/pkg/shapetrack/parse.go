package shapetrack

import (
	"fmt"
	"math"

	"github.com/tdewolff/parse/v2/strconv"
)

// Op identifies a path command.
type Op byte

const (
	MoveTo    Op = 'M'
	LineTo    Op = 'L'
	CubicTo   Op = 'C'
	QuadTo    Op = 'Q'
	ClosePath Op = 'Z'
)

func (o Op) String() string {
	switch o {
	case MoveTo:
		return "move-to"
	case LineTo:
		return "line-to"
	case CubicTo:
		return "cubic-to"
	case QuadTo:
		return "quad-to"
	case ClosePath:
		return "close-path"
	}
	return fmt.Sprintf("op(%c)", byte(o))
}

// Point is a coordinate in path-local units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command is a single parsed path command. Args are absolute; the last one is
// the end point. CubicTo carries two control points, QuadTo one, ClosePath none.
type Command struct {
	Op   Op
	Args []Point
}

// argCount is the number of scalars each command letter consumes.
var argCount = map[byte]int{
	'M': 2,
	'L': 2,
	'H': 1,
	'V': 1,
	'C': 6,
	'Q': 4,
	'Z': 0,
}

// Parse parses a path description built from M, L, H, V, C, Q and Z commands
// (lowercase for relative coordinates). A command letter followed by several
// argument sets repeats the command; extra pairs after a move are line-tos.
func Parse(desc string) ([]Command, error) {
	b := []byte(desc)
	i := skipSeparators(b, 0)
	if i == len(b) {
		return nil, &ParseError{Offset: i, Reason: "empty path description"}
	}

	var (
		cmds       []Command
		cur, start Point
		cmd        byte
		f          [6]float64
	)
	for {
		i = skipSeparators(b, i)
		if i >= len(b) {
			break
		}

		at := i
		if isNumberStart(b[i]) {
			switch {
			case cmd == 0:
				return nil, &ParseError{Token: tokenAt(b, i), Offset: i, Reason: "expected command"}
			case upper(cmd) == 'Z':
				return nil, &ParseError{Token: tokenAt(b, i), Offset: i, Reason: "unexpected argument after close-path"}
			}
		} else {
			if _, ok := argCount[upper(b[i])]; !ok {
				return nil, &ParseError{Token: tokenAt(b, i), Offset: i, Reason: "unrecognized command"}
			}
			cmd = b[i]
			i++
		}

		n := argCount[upper(cmd)]
		for j := 0; j < n; j++ {
			i = skipSeparators(b, i)
			if i >= len(b) {
				return nil, &ParseError{Token: string(cmd), Offset: at,
					Reason: fmt.Sprintf("expected %d arguments, got %d", n, j)}
			}
			v, m := strconv.ParseFloat(b[i:])
			if m == 0 {
				if isNumberStart(b[i]) {
					return nil, &ParseError{Token: tokenAt(b, i), Offset: i, Reason: "malformed number"}
				}
				return nil, &ParseError{Token: tokenAt(b, i), Offset: i,
					Reason: fmt.Sprintf("expected %d arguments for %c, got %d", n, cmd, j)}
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, &ParseError{Token: string(b[i : i+m]), Offset: i, Reason: "number out of range"}
			}
			f[j] = v
			i += m
		}

		rel := cmd >= 'a' && cmd <= 'z'
		abs := func(x, y float64) Point {
			if rel {
				return Point{X: cur.X + x, Y: cur.Y + y}
			}
			return Point{X: x, Y: y}
		}

		switch upper(cmd) {
		case 'M':
			cur = abs(f[0], f[1])
			start = cur
			cmds = append(cmds, Command{Op: MoveTo, Args: []Point{cur}})
			// Subsequent pairs are implicit line-tos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			cur = abs(f[0], f[1])
			cmds = append(cmds, Command{Op: LineTo, Args: []Point{cur}})
		case 'H':
			if rel {
				cur.X += f[0]
			} else {
				cur.X = f[0]
			}
			cmds = append(cmds, Command{Op: LineTo, Args: []Point{cur}})
		case 'V':
			if rel {
				cur.Y += f[0]
			} else {
				cur.Y = f[0]
			}
			cmds = append(cmds, Command{Op: LineTo, Args: []Point{cur}})
		case 'C':
			c1, c2, end := abs(f[0], f[1]), abs(f[2], f[3]), abs(f[4], f[5])
			cmds = append(cmds, Command{Op: CubicTo, Args: []Point{c1, c2, end}})
			cur = end
		case 'Q':
			c1, end := abs(f[0], f[1]), abs(f[2], f[3])
			cmds = append(cmds, Command{Op: QuadTo, Args: []Point{c1, end}})
			cur = end
		case 'Z':
			cmds = append(cmds, Command{Op: ClosePath})
			cur = start
		}
	}
	return cmds, nil
}

func skipSeparators(b []byte, i int) int {
	for i < len(b) && (b[i] == ' ' || b[i] == ',' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t') {
		i++
	}
	return i
}

func isNumberStart(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+'
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// tokenAt returns the run of bytes starting at i up to the next separator,
// capped so error messages stay short.
func tokenAt(b []byte, i int) string {
	j := i + 1
	for j < len(b) && j-i < 16 && b[j] != ' ' && b[j] != ',' && b[j] != '\n' && b[j] != '\r' && b[j] != '\t' {
		// stop at the next command letter when the token is a letter
		if !isNumberStart(b[i]) || !isNumberStart(b[j]) && b[j] != 'e' && b[j] != 'E' {
			break
		}
		j++
	}
	return string(b[i:j])
}
