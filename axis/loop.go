package axis

import (
	"context"
	"time"

	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/drive"
)

// tick runs one iteration of the control loop (spec.md §4.4, steps 1-10).
// It is invoked by loopTask on the configured LoopPeriod.
func (c *Controller) tick() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastLoopTime.IsZero() {
		dt := now.Sub(c.lastLoopTime).Seconds()
		if dt > 0 {
			c.loopRate = 1.0 / dt
		}
	}
	c.lastLoopTime = now

	// Step 3: read position, encoder, velocity.
	if pos, err := c.drive.GetActualPosition(); err == nil {
		c.posMountMicrosteps = pos
		c.posMountDeg = MicrostepsToDegrees(pos)
	} else {
		c.recordOutcome("get_actual_position", err)
	}
	if enc, err := c.drive.GetAxisParameter(drive.AxisParamEncoderPosition); err == nil {
		if c.cfg.Kind == axiskind.Azimuth {
			enc = -enc
		}
		c.posEncoderMicrosteps = enc
	} else {
		c.recordOutcome("get_encoder_position", err)
	}
	if vel, err := c.drive.GetActualVelocity(); err == nil {
		c.velInternal = vel
	} else {
		c.recordOutcome("get_actual_velocity", err)
	}

	// Step 4: celestial-frame position via the pointing-model reverse
	// transform, evaluated using both axes' mount-frame positions.
	c.posCelestialDeg = c.posMountDeg
	if c.frame != nil && c.frame.Active != nil && c.frame.Active() && c.frame.OtherAxisMountDeg != nil && c.frame.Reverse != nil {
		otherDeg := c.frame.OtherAxisMountDeg()
		azDeg, elDeg := c.selfAndOtherMountDeg(otherDeg)
		resAz, resEl := c.frame.Reverse(azDeg, elDeg)
		if c.cfg.Kind == axiskind.Azimuth {
			c.posCelestialDeg = resAz
		} else {
			c.posCelestialDeg = resEl
		}
	}

	// Step 5: fetch setpoints from collaborators.
	ctx := context.Background()
	if v, err := c.ephem.PositionAxis(ctx, c.cfg.Kind); err == nil {
		c.trajectorySetpoint = v
	} else {
		c.recordOutcome("ephemeris_position_axis", err)
	}
	if v, err := c.guide.OffAxisSetpoint(ctx, c.cfg.Kind); err == nil {
		c.offAxisSetpoint = v
	} else {
		c.recordOutcome("guider_off_axis_setpoint", err)
	}
	if v, err := c.guide.OffAxisValue(ctx, c.cfg.Kind); err == nil {
		c.offAxisMeasurement = v
	} else {
		c.recordOutcome("guider_off_axis_value", err)
	}

	// Step 6: error terms and on-target flags. The outer PID's output
	// reflects the previous iteration's TRACK-state update (step 8 runs
	// after this), matching spec.md's ordering.
	c.trajectoryError = c.trajectorySetpoint + c.outerPID.Output() - c.posCelestialDeg
	c.offAxisError = c.offAxisSetpoint - c.offAxisMeasurement
	c.onTargetTrajectory = absf(c.trajectoryError) <= c.cfg.TrajectoryOnTargetDeg
	c.onTargetOffAxis = absf(c.offAxisError) <= c.cfg.OffAxisOnTargetDeg

	// Step 7: latch state <- nextState, exactly once.
	c.state = c.nextState

	// Step 8: state-dependent action.
	switch c.state {
	case IDLE:
		// nothing
	case GotoPositionState, ParkState:
		if reached, err := c.drive.PositionReached(); err == nil && reached {
			c.nextState = IDLE
		} else if err != nil {
			c.recordOutcome("position_reached", err)
		}
	case GotoVelocityState:
		if c.velInternal == 0 {
			c.nextState = IDLE
		}
	case AbortState:
		if c.velInternal == 0 {
			c.innerPID.Reset()
			c.outerPID.Reset()
			c.nextState = IDLE
		}
	case TrackState:
		c.runTrackStep(ctx)
	case OOL:
		c.handleOOL()
	}

	// Step 9: limit check, mount frame only.
	if c.posMountDeg < c.cfg.LimitMinDeg || c.posMountDeg > c.cfg.LimitMaxDeg {
		c.outOfLimits = true
		if c.state != ParkState {
			c.nextState = OOL
		}
	} else {
		c.outOfLimits = false
	}
}

// selfAndOtherMountDeg orders this axis's and the sibling's mount-frame
// degrees into (az, el) for the two-dimensional reverse transform.
func (c *Controller) selfAndOtherMountDeg(otherDeg float64) (azDeg, elDeg float64) {
	if c.cfg.Kind == axiskind.Azimuth {
		return c.posMountDeg, otherDeg
	}
	return otherDeg, c.posMountDeg
}

// runTrackStep implements spec.md §4.4 step 8's TRACK action: outer loop
// on off-axis measurement, inner setpoint incorporating the outer output
// only while a detection is both enabled and present, inner loop on
// celestial position, and a deduplicated velocity write.
func (c *Controller) runTrackStep(ctx context.Context) {
	outerOut := c.outerPID.Compute(c.offAxisSetpoint-c.offAxisMeasurement, c.offAxisMeasurement)

	innerSetpoint := c.trajectorySetpoint
	enabled, present, err := c.guide.Detection(ctx)
	if err != nil {
		c.recordOutcome("guider_detection", err)
	} else if enabled && present {
		innerSetpoint = c.trajectorySetpoint - outerOut
	}

	innerErr := innerSetpoint - c.posCelestialDeg
	innerOut := c.innerPID.Compute(innerErr, c.posCelestialDeg)

	if innerOut != 0 {
		c.setVelocityLocked(int32(innerOut))
	}
}

// setVelocityLocked clamps and deduplicates a velocity write: a repeat of
// the last commanded velocity is not re-sent to the drive.
func (c *Controller) setVelocityLocked(microstepsPerSec int32) {
	clamped := clampVelocity(microstepsPerSec, c.cfg.MaxVelocityMicrostepsPerSec)
	if clamped == c.lastCommandedVelocity {
		return
	}
	err := c.drive.Rotate(clamped)
	c.recordOutcome("set_velocity", err)
	if err == nil {
		c.lastCommandedVelocity = clamped
	}
}

// handleOOL implements spec.md §4.4 step 8's OOL action: if the axis is
// not already stopped, issue an unconditional stop with its own,
// longer retry budget.
func (c *Controller) handleOOL() {
	if c.velInternal == 0 {
		return
	}
	err := retryDrive(c.cfg.OOLRetryAttempts, c.cfg.RetryBackoff, func() error {
		return c.drive.Stop()
	})
	c.recordOutcome("ool_stop", err)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
