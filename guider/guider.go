/*Package guider defines the collaborator supplying the outer (off-axis
optical) PID loop's process variable and setpoint (spec.md §4.2, §4.4):
a blob-centroid tracker running against a guide camera feed. This module
does not do image processing; it only consumes the resulting off-axis
error.
*/
package guider

import (
	"context"

	"github.com/openogs/ogscore/axiskind"
)

// Source reports the current off-axis error value and setpoint for a
// given axis, plus whether a guide star is currently detected. The axis
// control loop falls back to the inner (position-only) loop whenever
// Detection reports present == false, per spec.md's degraded-mode
// behavior for lost lock.
type Source interface {
	OffAxisValue(ctx context.Context, kind axiskind.Kind) (degrees float64, err error)
	OffAxisSetpoint(ctx context.Context, kind axiskind.Kind) (degrees float64, err error)
	Detection(ctx context.Context) (enabled bool, present bool, err error)
}

// Disabled is a Source that reports guiding as always disabled, the
// default collaborator when no guide camera is configured, which forces
// every axis onto its inner position loop only.
type Disabled struct{}

func (Disabled) OffAxisValue(context.Context, axiskind.Kind) (float64, error)    { return 0, nil }
func (Disabled) OffAxisSetpoint(context.Context, axiskind.Kind) (float64, error) { return 0, nil }
func (Disabled) Detection(context.Context) (bool, bool, error)                  { return false, false, nil }

var _ Source = Disabled{}
