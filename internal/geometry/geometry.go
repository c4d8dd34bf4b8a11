// Package geometry provides the planar room-boundary math used to build
// sensor grids for daylight analysis. All coordinates are millimetres in
// model space unless noted.
package geometry

import (
	"math"

	"github.com/pkg/errors"
)

// MMPerFoot converts host-internal feet to millimetres.
const MMPerFoot = 304.8

func FeetToMM(ft float64) float64 { return ft * MMPerFoot }
func MMToFeet(mm float64) float64 { return mm / MMPerFoot }

// Point is a 2D point in plan view.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is a closed room boundary. The first vertex is not repeated at
// the end; edges wrap around implicitly.
type Polygon []Point

var ErrDegenerateBoundary = errors.New("room boundary needs at least 3 vertices")

// Area returns the enclosed area via the shoelace formula, always positive
// regardless of winding.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// AreaM2 returns the area in square metres.
func (p Polygon) AreaM2() float64 { return p.Area() / 1e6 }

// Bounds returns the axis-aligned bounding box (min, max).
func (p Polygon) Bounds() (Point, Point) {
	if len(p) == 0 {
		return Point{}, Point{}
	}
	min, max := p[0], p[0]
	for _, v := range p[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
	}
	return min, max
}

// Contains reports whether pt lies inside the polygon (ray casting; points
// exactly on an edge count as inside for grid purposes).
func (p Polygon) Contains(pt Point) bool {
	if len(p) < 3 {
		return false
	}
	inside := false
	for i := range p {
		j := (i + 1) % len(p)
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xCross := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// Grid is a regular sampling of a room boundary. Values are addressed
// row-major; Inside marks cells whose centre falls within the boundary.
type Grid struct {
	Origin  Point
	Spacing float64
	Cols    int
	Rows    int
	Inside  []bool
}

// Cell returns the centre point of the cell at (col, row).
func (g Grid) Cell(col, row int) Point {
	return Point{
		X: g.Origin.X + (float64(col)+0.5)*g.Spacing,
		Y: g.Origin.Y + (float64(row)+0.5)*g.Spacing,
	}
}

// InsideAt reports whether the cell at (col, row) lies inside the boundary.
func (g Grid) InsideAt(col, row int) bool {
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return false
	}
	return g.Inside[row*g.Cols+col]
}

// InsideCount returns the number of cells inside the boundary.
func (g Grid) InsideCount() int {
	n := 0
	for _, in := range g.Inside {
		if in {
			n++
		}
	}
	return n
}

// SensorGrid builds a regular grid over the boundary's bounding box with the
// given spacing in mm. The grid covers the box completely; cells whose
// centre lands outside the boundary are masked out.
func SensorGrid(boundary Polygon, spacing float64) (Grid, error) {
	if len(boundary) < 3 {
		return Grid{}, ErrDegenerateBoundary
	}
	if spacing <= 0 {
		return Grid{}, errors.Errorf("invalid grid spacing %.1f", spacing)
	}
	min, max := boundary.Bounds()
	cols := int(math.Ceil((max.X - min.X) / spacing))
	rows := int(math.Ceil((max.Y - min.Y) / spacing))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	g := Grid{
		Origin:  min,
		Spacing: spacing,
		Cols:    cols,
		Rows:    rows,
		Inside:  make([]bool, cols*rows),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			g.Inside[row*cols+col] = boundary.Contains(g.Cell(col, row))
		}
	}
	return g, nil
}
