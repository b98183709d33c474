/*Package camera defines the collaborator the mount coordinator drives
during a pointing-model calibration pass (spec.md §4.5's calibrate
operation, supplemented from the Python original's imager/object
modules): something that can capture a calibration frame at the current
waypoint and report whether it is in a still-image-ready mode.

Image processing, frame formats, and sensor control are out of this
module's scope (spec.md Non-goals); Capturer only needs to know when a
capture at a waypoint has completed, not how to acquire or interpret the
resulting frame.
*/
package camera

import "context"

// Waypoint is one calibration star or reference target the mount slews
// to and holds on while Capture is called.
type Waypoint struct {
	Name  string
	AzDeg float64
	ElDeg float64
}

// Capturer captures frames during calibration. A real implementation
// wraps a FITS-producing camera driver's initialize/expose/finalize
// sequence behind a single blocking call.
type Capturer interface {
	Capture(ctx context.Context, waypoint Waypoint) error
	StillMode(ctx context.Context) (bool, error)
}

// Noop is a Capturer that immediately reports success without capturing
// anything, used when calibration is driven open-loop (waypoint
// sequencing only, no imaging) or in tests.
type Noop struct{}

// Capture implements Capturer.
func (Noop) Capture(context.Context, Waypoint) error { return nil }

// StillMode implements Capturer.
func (Noop) StillMode(context.Context) (bool, error) { return true, nil }

var _ Capturer = Noop{}
