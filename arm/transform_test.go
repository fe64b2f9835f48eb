package arm_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/nasa-jpl/penarm/arm"
)

func ExampleConfig_ToArmFrame() {
	c := arm.Config{MinDimensionHalf: 50}
	x, y := c.ToArmFrame(arm.Point{X: 50, Y: 25})
	fmt.Println(x, y)
	// Output: 0.6 1
}

func ExampleToPolar() {
	r, t := arm.ToPolar(0, 1)
	fmt.Println(r, t)
	// Output: 1 0
}

func TestToPolarOriginIsZeroAngle(t *testing.T) {
	r, th := arm.ToPolar(0, 0)
	if r != 0 || th != 0 {
		t.Errorf("expected (0, 0), got (%v, %v)", r, th)
	}
}

func TestPolarRoundTrip(t *testing.T) {
	pts := [][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {0.3, -2.7}, {-4.5, 1.25}}
	for _, p := range pts {
		r, th := arm.ToPolar(p[0], p[1])
		x, y := arm.FromPolar(r, th)
		if math.Abs(x-p[0]) > 1e-12 || math.Abs(y-p[1]) > 1e-12 {
			t.Errorf("round trip of %v gave (%v, %v)", p, x, y)
		}
	}
}

func TestToPolarAngleIsFromPlusY(t *testing.T) {
	_, th := arm.ToPolar(1, 0)
	if math.Abs(th-math.Pi/2) > 1e-15 {
		t.Errorf("expected +x to be at pi/2, got %v", th)
	}
}

func TestPenHeight(t *testing.T) {
	cases := []struct {
		down  bool
		shift float64
		want  float64
	}{
		{false, 0, 0.4},
		{true, 0, 0},
		{true, 1.5, -1.5},
		{false, -2, 2.4},
	}
	for _, c := range cases {
		if got := arm.PenHeight(c.down, c.shift); got != c.want {
			t.Errorf("PenHeight(%t, %v) = %v, want %v", c.down, c.shift, got, c.want)
		}
	}
}
