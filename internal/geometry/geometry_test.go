package geometry

import (
	"math"
	"testing"
)

func rect(w, h float64) Polygon {
	return Polygon{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

func TestAreaRectangle(t *testing.T) {
	p := rect(4000, 3000)
	if got := p.Area(); math.Abs(got-12e6) > 1e-6 {
		t.Fatalf("area: got %.1f want 12e6", got)
	}
	if got := p.AreaM2(); math.Abs(got-12.0) > 1e-9 {
		t.Fatalf("area m2: got %f want 12", got)
	}
}

func TestAreaWindingIndependent(t *testing.T) {
	cw := Polygon{{0, 0}, {0, 3000}, {4000, 3000}, {4000, 0}}
	ccw := rect(4000, 3000)
	if math.Abs(cw.Area()-ccw.Area()) > 1e-6 {
		t.Fatal("area should not depend on winding")
	}
}

func TestContainsLShape(t *testing.T) {
	// L-shaped room: 6x6 with the top-right 3x3 quadrant missing.
	l := Polygon{{0, 0}, {6000, 0}, {6000, 3000}, {3000, 3000}, {3000, 6000}, {0, 6000}}
	cases := []struct {
		pt   Point
		want bool
	}{
		{Point{1500, 1500}, true},
		{Point{4500, 1500}, true},
		{Point{1500, 4500}, true},
		{Point{4500, 4500}, false}, // the notch
		{Point{-100, 1000}, false},
		{Point{7000, 7000}, false},
	}
	for _, c := range cases {
		if got := l.Contains(c.pt); got != c.want {
			t.Errorf("Contains(%v): got %v want %v", c.pt, got, c.want)
		}
	}
}

func TestSensorGridRectangle(t *testing.T) {
	g, err := SensorGrid(rect(4000, 2000), 500)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if g.Cols != 8 || g.Rows != 4 {
		t.Fatalf("grid dims: got %dx%d want 8x4", g.Cols, g.Rows)
	}
	// Every cell centre of a rectangle grid is inside.
	if got := g.InsideCount(); got != 32 {
		t.Fatalf("inside count: got %d want 32", got)
	}
	c := g.Cell(0, 0)
	if c.X != 250 || c.Y != 250 {
		t.Fatalf("cell centre: got %v", c)
	}
}

func TestSensorGridMasksNotch(t *testing.T) {
	l := Polygon{{0, 0}, {6000, 0}, {6000, 3000}, {3000, 3000}, {3000, 6000}, {0, 6000}}
	g, err := SensorGrid(l, 1000)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if g.InsideAt(5, 5) {
		t.Error("notch cell should be masked out")
	}
	if !g.InsideAt(1, 1) {
		t.Error("interior cell should be inside")
	}
	// 6x6 box minus 3x3 notch = 27 cells.
	if got := g.InsideCount(); got != 27 {
		t.Fatalf("inside count: got %d want 27", got)
	}
}

func TestSensorGridRejectsDegenerate(t *testing.T) {
	if _, err := SensorGrid(Polygon{{0, 0}, {1, 1}}, 500); err != ErrDegenerateBoundary {
		t.Fatalf("expected ErrDegenerateBoundary, got %v", err)
	}
	if _, err := SensorGrid(rect(1000, 1000), 0); err == nil {
		t.Fatal("expected error for zero spacing")
	}
}

func TestUnitConversion(t *testing.T) {
	if got := FeetToMM(10); math.Abs(got-3048) > 1e-9 {
		t.Fatalf("FeetToMM: got %f", got)
	}
	if got := MMToFeet(3048); math.Abs(got-10) > 1e-9 {
		t.Fatalf("MMToFeet: got %f", got)
	}
}
