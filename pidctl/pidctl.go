/*Package pidctl implements the cascaded PID loops used by the axis
controller: an outer optical (off-axis) loop and an inner position loop
(spec.md §4.2). Both loops use the same Controller type, configured with
different gains and sample periods.

The controller follows derivative-on-measurement rather than
derivative-on-error, so that a setpoint step does not inject a derivative
kick, and clamps the integral term's contribution directly (rather than
clamping the raw accumulated error) so that Ki can be retuned without
needing to rescale the clamp.
*/
package pidctl

import "time"

// Gains holds the three PID coefficients.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// Controller is a single PID loop. The zero value is not ready for use;
// construct one with New.
type Controller struct {
	gains        Gains
	samplePeriod time.Duration
	outputMin    float64
	outputMax    float64

	now func() time.Time

	lastTime    time.Time
	have        bool
	integral    float64
	lastMeasure float64

	// PTerm, ITerm, DTerm hold the most recently computed contribution of
	// each term, exported for telemetry and tests.
	PTerm float64
	ITerm float64
	DTerm float64
}

// New returns a Controller with the given gains, minimum sample period,
// and output clamp. A Compute call that arrives before samplePeriod has
// elapsed since the last one is a no-op that returns the previous output.
func New(gains Gains, samplePeriod time.Duration, outputMin, outputMax float64) *Controller {
	return &Controller{
		gains:        gains,
		samplePeriod: samplePeriod,
		outputMin:    outputMin,
		outputMax:    outputMax,
		now:          time.Now,
	}
}

// SetGains updates the loop's coefficients in place. It does not reset
// the integrator, so a gain change mid-track does not cause an output
// discontinuity.
func (c *Controller) SetGains(g Gains) {
	c.gains = g
}

// Gains returns the controller's current coefficients.
func (c *Controller) Gains() Gains {
	return c.gains
}

// Reset clears the integrator and derivative history. The axis control
// loop calls it on the ABORT -> IDLE transition, so a stale integral term
// from an aborted move does not contaminate the next one.
func (c *Controller) Reset() {
	c.have = false
	c.integral = 0
	c.lastMeasure = 0
	c.PTerm, c.ITerm, c.DTerm = 0, 0, 0
}

// Compute advances the loop given the current error (setpoint -
// measurement) and measurement, and returns the clamped control output.
// Calls spaced closer than the configured sample period return the last
// computed output unchanged, so a control loop that ticks faster than
// the PID's own cadence (per SPEC_FULL.md's decoupled loop/sample
// periods) does not over-drive the integrator.
func (c *Controller) Compute(errValue, measurement float64) float64 {
	t := c.now()
	if !c.have {
		c.have = true
		c.lastTime = t
		c.lastMeasure = measurement
	}
	dt := t.Sub(c.lastTime)
	if dt < c.samplePeriod {
		return c.clampedOutput()
	}
	secs := dt.Seconds()
	if secs <= 0 {
		secs = c.samplePeriod.Seconds()
	}

	c.PTerm = c.gains.Kp * errValue

	c.integral += errValue * secs
	c.ITerm = c.gains.Ki * c.integral
	if c.ITerm > c.outputMax {
		c.ITerm = c.outputMax
		c.integral = c.ITerm / c.gains.Ki
	} else if c.ITerm < c.outputMin {
		c.ITerm = c.outputMin
		if c.gains.Ki != 0 {
			c.integral = c.ITerm / c.gains.Ki
		}
	}

	derivative := (measurement - c.lastMeasure) / secs
	c.DTerm = -c.gains.Kd * derivative

	c.lastMeasure = measurement
	c.lastTime = t

	return c.clampedOutput()
}

// Output returns the most recently computed control output, without
// advancing the loop. This is what spec.md §4.4 step 6 reads for the
// outer loop's contribution to the trajectory error before step 8 has
// run this iteration's TRACK-state Compute call.
func (c *Controller) Output() float64 {
	return c.clampedOutput()
}

func (c *Controller) clampedOutput() float64 {
	out := c.PTerm + c.ITerm + c.DTerm
	if out > c.outputMax {
		return c.outputMax
	}
	if out < c.outputMin {
		return c.outputMin
	}
	return out
}
