/*Package ephemeris defines the collaborator the mount coordinator consults
during start_tracking (spec.md §4.5): something that can report where a
tracked target currently sits, in celestial-frame degrees, for a given
axis. The mount core does not compute ephemerides itself — TLE
propagation, solar-system body tables, and star catalog lookups all live
outside this module's scope — it only needs a narrow interface to poll.
*/
package ephemeris

import (
	"context"

	"github.com/openogs/ogscore/axiskind"
)

// Source reports a tracked target's current position on one axis, in
// celestial-frame degrees. Implementations are expected to be cheap and
// fast; each axis control loop calls PositionAxis once per tick, in every
// state.
type Source interface {
	PositionAxis(ctx context.Context, kind axiskind.Kind) (degrees float64, err error)
}

// Fixed is a Source that always reports the same position, useful for
// tests and for a "park the dish on a known star" debugging aid.
type Fixed struct {
	AzDeg float64
	ElDeg float64
}

// PositionAxis implements Source.
func (f Fixed) PositionAxis(_ context.Context, kind axiskind.Kind) (float64, error) {
	if kind == axiskind.Azimuth {
		return f.AzDeg, nil
	}
	return f.ElDeg, nil
}

var _ Source = Fixed{}
