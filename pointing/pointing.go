/*Package pointing implements the pure coordinate transform between
celestial-frame and mount-frame coordinates (spec.md §4.3). The transform
is a pure function of its coefficients and the model is safe for
concurrent reads while a new coefficient set is being installed, since
the axis control loops evaluate it every tick while an operator
recalibration goroutine may be replacing the coefficients.
*/
package pointing

import "sync/atomic"

// Coefficients are the pointing-model terms applied when mapping a
// celestial-frame target to the mount frame, and reversed when mapping a
// mount-frame encoder reading back to the celestial frame. Terms follow
// the common az/el mount-model convention: a constant per-axis offset,
// a non-perpendicularity term between the axes, and linear scale errors.
type Coefficients struct {
	AzOffsetDeg      float64
	ElOffsetDeg      float64
	NonPerpDeg       float64 // azimuth axis vs elevation axis non-orthogonality
	AzScale          float64 // 1.0 == no scale error
	ElScale          float64
}

// Identity returns the coefficient set that makes Apply and Reverse a
// no-op, used as the default model before any calibration has run.
func Identity() Coefficients {
	return Coefficients{AzScale: 1, ElScale: 1}
}

// Model holds a swappable Coefficients value. The zero Model is not
// usable; construct one with NewModel.
type Model struct {
	coeffs atomic.Pointer[Coefficients] // never modified after Store
}

// NewModel returns a Model seeded with the given coefficients, or with
// Identity() if none are given.
func NewModel(c ...Coefficients) *Model {
	m := &Model{}
	if len(c) > 0 {
		m.SetCoefficients(c[0])
	} else {
		m.SetCoefficients(Identity())
	}
	return m
}

// Coefficients returns the currently active coefficient set.
func (m *Model) Coefficients() Coefficients {
	return *m.coeffs.Load()
}

// SetCoefficients installs a new coefficient set for subsequent Apply and
// Reverse calls. It is safe to call concurrently with Apply/Reverse: the
// model stores a pointer to a fresh copy and swaps it in atomically, so a
// concurrent reader always observes one complete, consistent set.
func (m *Model) SetCoefficients(c Coefficients) {
	m.coeffs.Store(&c)
}

// Active reports whether a non-identity coefficient set has been
// installed, used by telemetry and by the mount coordinator's
// CoordinateFrame wiring to report "correction_active" without the axis
// controller needing to know anything about Coefficients itself.
func (m *Model) Active() bool {
	return m.Coefficients() != Identity()
}

// Apply maps a celestial-frame (azimuth, elevation) pair, in degrees,
// into the mount frame the axis controllers command against.
func (m *Model) Apply(azDeg, elDeg float64) (mountAzDeg, mountElDeg float64) {
	c := m.Coefficients()
	mountAzDeg = azDeg*c.AzScale + c.AzOffsetDeg + elDeg*tanDeg(c.NonPerpDeg)
	mountElDeg = elDeg*c.ElScale + c.ElOffsetDeg
	return mountAzDeg, mountElDeg
}

// Reverse maps a mount-frame (azimuth, elevation) pair, in degrees, back
// into the celestial frame, undoing Apply. It is used to convert the
// axes' mount-frame positions into the celestial position the inner
// position loop compares against its setpoint.
func (m *Model) Reverse(mountAzDeg, mountElDeg float64) (azDeg, elDeg float64) {
	c := m.Coefficients()
	if c.ElScale == 0 {
		c.ElScale = 1
	}
	if c.AzScale == 0 {
		c.AzScale = 1
	}
	elDeg = (mountElDeg - c.ElOffsetDeg) / c.ElScale
	azDeg = (mountAzDeg - c.AzOffsetDeg - elDeg*tanDeg(c.NonPerpDeg)) / c.AzScale
	return azDeg, elDeg
}
