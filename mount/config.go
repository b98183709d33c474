package mount

import (
	"time"

	"github.com/openogs/ogscore/camera"
)

// Config holds the Mount Coordinator's tuning parameters and the fixed
// calibration waypoint list (spec.md §6, "mount-level keys: site lat/lon/
// alt, list of calibration az/el points").
type Config struct {
	SiteLatDeg float64
	SiteLonDeg float64
	SiteAltM   float64

	Waypoints []camera.Waypoint

	// SettleDelay is the pause after issuing paired axis commands, before
	// polling begins (spec.md §5, "sleep(2) after issuing paired
	// commands"). WaitPollInterval is the subsequent poll cadence
	// (spec.md §5, "sleep(1) polling until both axes IDLE").
	SettleDelay      time.Duration
	WaitPollInterval time.Duration

	// CalibrationCaptureDelay is how long Calibrate waits after a
	// waypoint goto settles before triggering a capture (spec.md §4.5,
	// "~60s"). CalibrationSettleDelay is the short pause between one
	// waypoint's capture and the next waypoint's goto.
	CalibrationCaptureDelay time.Duration
	CalibrationSettleDelay  time.Duration
}

// DefaultConfig returns the delay values spec.md specifies by number,
// leaving site location and the waypoint list for the caller to fill in
// from the configuration tree.
func DefaultConfig() Config {
	return Config{
		SettleDelay:             2 * time.Second,
		WaitPollInterval:        1 * time.Second,
		CalibrationCaptureDelay: 60 * time.Second,
		CalibrationSettleDelay:  2 * time.Second,
	}
}
