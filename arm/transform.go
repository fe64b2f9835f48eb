package arm

import "math"

// ToArmFrame converts a workspace point into normalized arm-frame cartesian
// coordinates.  The axes are swapped: workspace Y drives arm x and workspace
// X drives arm y, matching how the arm is mounted over the page.
func (c Config) ToArmFrame(p Point) (x, y float64) {
	x = (p.Y - c.OriginShiftY) / c.MinDimensionHalf * ScalingFactorX
	y = (p.X - c.OriginShiftX) / c.MinDimensionHalf * ScalingFactorY
	return x, y
}

// ToPolar converts arm-frame cartesian coordinates to a radius and angle.
// The angle is measured from the +y axis towards +x (right hand coords,
// x = -y, y = x), so ToPolar(0, 1) is (1, 0).
func ToPolar(x, y float64) (r, t float64) {
	return math.Sqrt(x*x + y*y), math.Atan2(x, y)
}

// FromPolar is the inverse of ToPolar
func FromPolar(r, t float64) (x, y float64) {
	return r * math.Sin(t), r * math.Cos(t)
}

// PenHeight is the actuator z for a pen state and vertical shift
func PenHeight(down bool, shift float64) float64 {
	z := PenUpClearance
	if down {
		z = 0
	}
	return z - shift
}
