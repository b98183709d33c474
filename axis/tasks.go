package axis

import (
	"context"
	"fmt"
)

// poll implements spec.md §4.4's poll side task: under the mutex, reads
// status flags, error flags, supply voltage, and temperature.
// AnalogInput(8) is the supply rail in tenths of a volt, so ÷10 gives
// volts; AnalogInput(9) is the board temperature in °C, used as read.
func (c *Controller) poll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, err := c.drive.GetStatusFlags(); err == nil {
		c.statusFlags = v
	} else {
		c.recordOutcome("poll_status_flags", err)
	}
	if v, err := c.drive.GetErrorFlags(); err == nil {
		c.errorFlags = v
	} else {
		c.recordOutcome("poll_error_flags", err)
	}
	if v, err := c.drive.AnalogInput(8); err == nil {
		c.supplyVoltageV = float64(v) / 10
	} else {
		c.recordOutcome("poll_supply_voltage", err)
	}
	if v, err := c.drive.AnalogInput(9); err == nil {
		c.temperatureC = float64(v)
	} else {
		c.recordOutcome("poll_temperature", err)
	}
}

// publish implements spec.md §4.4's publish side task: snapshot the
// status under the mutex, then emit it to the metrics sink outside the
// lock so a slow or stalled sink cannot delay the next control-loop tick.
func (c *Controller) publish() {
	status := c.Status()

	fields := map[string]interface{}{
		"state":                      status.State.String(),
		"pos_mount_microsteps":       status.PosMountMicrosteps,
		"pos_mount_deg":              status.PosMountDeg,
		"pos_celestial_deg":          status.PosCelestialDeg,
		"pos_encoder_microsteps":     status.PosEncoderMicrosteps,
		"velocity_microsteps_per_s":  status.VelocityMicrostepsPerSec,
		"velocity_deg_per_s":         status.VelocityDegPerSec,
		"status_flags":               status.StatusFlags,
		"error_flags":                status.ErrorFlags,
		"temperature_c":              status.TemperatureC,
		"supply_voltage_v":           status.SupplyVoltageV,
		"successes":                  status.Successes,
		"errors":                     status.Errors,
		"loop_rate_hz":               status.LoopRate,
		"out_of_limits":              status.OutOfLimits,
		"correction_active":          status.CorrectionActive,
		"trajectory_error_deg":       status.TrajectoryErrorDeg,
		"off_axis_error_deg":         status.OffAxisErrorDeg,
		"on_target_trajectory":       status.OnTargetTrajectory,
		"on_target_off_axis":         status.OnTargetOffAxis,
		"inner_p_term":               status.InnerPTerm,
		"inner_i_term":               status.InnerITerm,
		"inner_d_term":               status.InnerDTerm,
		"outer_p_term":               status.OuterPTerm,
		"outer_i_term":               status.OuterITerm,
		"outer_d_term":               status.OuterDTerm,
	}
	tags := map[string]string{
		"axis": status.Name,
		"kind": status.Kind.String(),
	}

	if c.sink == nil {
		return
	}
	if err := c.sink.Publish(context.Background(), "axis_status", tags, fields); err != nil {
		c.mu.Lock()
		c.recordOutcome("publish", fmt.Errorf("telemetry publish: %w", err))
		c.mu.Unlock()
	}
}
