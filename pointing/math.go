package pointing

import "math"

const degToRad = math.Pi / 180

// tanDeg is math.Tan for an argument in degrees, used because the
// pointing model's coefficients are specified in degrees throughout.
func tanDeg(deg float64) float64 {
	return math.Tan(deg * degToRad)
}
