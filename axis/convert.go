package axis

import "math"

// Unit-conversion constants for the stepper/gearbox chain: 64 microsteps
// per driver pulse, 200 pulses per motor revolution, a 720:1 gearbox
// between the motor and the axis.
const (
	MicrostepsPerPulse  = 64
	PulsesPerRevolution = 200
	GearRatio           = 720
)

// DegreesPerMicrostep is 360 / (64 * 200 * 720).
const DegreesPerMicrostep = 360.0 / float64(MicrostepsPerPulse*PulsesPerRevolution*GearRatio)

// MicrostepsToDegrees converts a raw (already sign-extended) microstep
// count to degrees.
func MicrostepsToDegrees(microsteps int32) float64 {
	return float64(microsteps) * DegreesPerMicrostep
}

// DegreesToMicrosteps converts degrees to the nearest microstep count.
func DegreesToMicrosteps(degrees float64) int32 {
	return int32(math.Round(degrees / DegreesPerMicrostep))
}
