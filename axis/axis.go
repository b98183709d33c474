/*Package axis implements the per-axis finite state machine and control
loop described in spec.md §4.4: one Controller per physical axis, owning
a Drive Client, a cascaded pair of PID loops (off-axis outer, position
inner), and a control loop goroutine that ticks at a configured cadence.

A Controller knows only the collaborators it needs at construction: a
drive.Interface, an ephemeris.Source, and a guider.Source (spec.md §9's
explicit redesign note). The one addition beyond those three is
CoordinateFrame, needed because the pointing-model reverse transform
(package pointing) is two-dimensional: evaluating it for one axis
requires the other axis's current mount-frame position too. The Mount
Coordinator, which owns the pointing.Model, wires this in after
constructing both axes.
*/
package axis

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/drive"
	"github.com/openogs/ogscore/ephemeris"
	"github.com/openogs/ogscore/guider"
	"github.com/openogs/ogscore/pidctl"
	"github.com/openogs/ogscore/telemetry"
	"github.com/openogs/ogscore/timer"
)

// CoordinateFrame lets an axis evaluate the pointing-model reverse
// transform, which needs both axes' mount-frame positions even though
// only one axis's celestial-frame result is wanted here. OtherAxisMountDeg
// is wired by the Mount Coordinator after both Controllers exist.
type CoordinateFrame struct {
	Reverse           func(mountAzDeg, mountElDeg float64) (azDeg, elDeg float64)
	Active            func() bool
	OtherAxisMountDeg func() float64
}

// Controller is the control loop and command-verb surface for one
// physical axis.
type Controller struct {
	cfg    Config
	drive  drive.Interface
	ephem  ephemeris.Source
	guide  guider.Source
	sink   telemetry.Sink
	frame  *CoordinateFrame
	logger *log.Logger

	mu        sync.Mutex
	state     State
	nextState State

	posMountMicrosteps   int32
	posEncoderMicrosteps int32
	velInternal          int32
	posMountDeg          float64
	posCelestialDeg      float64
	statusFlags          uint32
	errorFlags           uint32
	temperatureC         float64
	supplyVoltageV       float64

	lastCommandedVelocity int32
	outOfLimits           bool

	successes   uint64
	errorsCount uint64
	lastErr     error
	lastCommand string

	innerPID *pidctl.Controller
	outerPID *pidctl.Controller

	trajectorySetpoint  float64
	offAxisSetpoint     float64
	offAxisMeasurement  float64
	trajectoryError     float64
	offAxisError        float64
	onTargetTrajectory  bool
	onTargetOffAxis     bool

	lastLoopTime time.Time
	loopRate     float64

	loopTask    *timer.Task
	pollTask    *timer.Task
	publishTask *timer.Task

	closed int32
}

// New constructs a Controller for one axis. The control loop and side
// tasks are not started until Start is called.
func New(cfg Config, d drive.Interface, ephem ephemeris.Source, guide guider.Source, sink telemetry.Sink, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.Writer(), "axis["+cfg.Name+"] ", log.LstdFlags)
	}
	c := &Controller{
		cfg:    cfg,
		drive:  d,
		ephem:  ephem,
		guide:  guide,
		sink:   sink,
		logger: logger,

		innerPID: pidctl.New(cfg.InnerGains, cfg.InnerSamplePeriod, -cfg.InnerWindup, cfg.InnerWindup),
		outerPID: pidctl.New(cfg.OuterGains, cfg.OuterSamplePeriod, -cfg.OuterWindup, cfg.OuterWindup),
	}
	return c
}

// SetCoordinateFrame wires the pointing-model collaborator. Called by the
// Mount Coordinator once both axes exist.
func (c *Controller) SetCoordinateFrame(f *CoordinateFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = f
}

// Start launches the control loop and the poll/publish side tasks.
func (c *Controller) Start() {
	c.loopTask = timer.New(c.cfg.LoopPeriod, c.tick)
	c.pollTask = timer.New(c.cfg.PollInterval, c.poll)
	c.publishTask = timer.New(c.cfg.PublishInterval, c.publish)
	c.loopTask.Start()
	c.pollTask.Start()
	c.publishTask.Start()
}

// Stop cancels the control loop and side tasks. An already-stopped
// Controller may be Stopped again; Cancel is idempotent.
func (c *Controller) Stop() {
	atomic.StoreInt32(&c.closed, 1)
	if c.loopTask != nil {
		c.loopTask.Cancel()
	}
	if c.pollTask != nil {
		c.pollTask.Cancel()
	}
	if c.publishTask != nil {
		c.publishTask.Cancel()
	}
}

// SetGains updates both loops' coefficients in place (config hot-reload;
// SPEC_FULL.md §6 expansion, "soft parameters ... may be hot-reloaded").
// It does not reset either integrator.
func (c *Controller) SetGains(inner, outer pidctl.Gains) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.innerPID.SetGains(inner)
	c.outerPID.SetGains(outer)
}

// SetThresholds updates the on-target tolerances used by step 6 of the
// control loop.
func (c *Controller) SetThresholds(trajectoryOnTargetDeg, offAxisOnTargetDeg float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.TrajectoryOnTargetDeg = trajectoryOnTargetDeg
	c.cfg.OffAxisOnTargetDeg = offAxisOnTargetDeg
}

// SetPollInterval restarts the poll side task at a new cadence. If the
// Controller has not been Start-ed yet, it only stores the interval for
// Start to use.
func (c *Controller) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	c.cfg.PollInterval = d
	task := c.pollTask
	c.mu.Unlock()
	if task == nil {
		return
	}
	task.Cancel()
	c.mu.Lock()
	c.pollTask = timer.New(d, c.poll)
	c.pollTask.Start()
	c.mu.Unlock()
}

// SetPublishInterval restarts the publish side task at a new cadence. If
// the Controller has not been Start-ed yet, it only stores the interval
// for Start to use.
func (c *Controller) SetPublishInterval(d time.Duration) {
	c.mu.Lock()
	c.cfg.PublishInterval = d
	task := c.publishTask
	c.mu.Unlock()
	if task == nil {
		return
	}
	task.Cancel()
	c.mu.Lock()
	c.publishTask = timer.New(d, c.publish)
	c.publishTask.Start()
	c.mu.Unlock()
}

// State returns the axis's current FSM state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Limits returns the axis's mount-frame soft limits in degrees.
func (c *Controller) Limits() (min, max float64) {
	return c.cfg.LimitMinDeg, c.cfg.LimitMaxDeg
}

// Name returns the axis's configured name.
func (c *Controller) Name() string {
	return c.cfg.Name
}

// Kind returns which physical axis this Controller drives.
func (c *Controller) Kind() axiskind.Kind {
	return c.cfg.Kind
}

// MountPositionDeg returns the axis's last-observed mount-frame position,
// in degrees. Used by the sibling axis's CoordinateFrame.OtherAxisMountDeg
// to evaluate the (two-dimensional) pointing-model reverse transform.
func (c *Controller) MountPositionDeg() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.posMountDeg
}

// Status returns a snapshot of the axis's observed and control state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	correctionActive := false
	if c.frame != nil && c.frame.Active != nil {
		correctionActive = c.frame.Active()
	}
	lastErrS := ""
	if c.lastErr != nil {
		lastErrS = c.lastErr.Error()
	}
	return Status{
		Name:                 c.cfg.Name,
		Kind:                 c.cfg.Kind,
		State:                c.state,
		NextState:            c.nextState,
		PosMountMicrosteps:   c.posMountMicrosteps,
		PosMountDeg:          c.posMountDeg,
		PosCelestialDeg:      c.posCelestialDeg,
		PosEncoderMicrosteps: c.posEncoderMicrosteps,
		VelocityMicrostepsPerSec: c.velInternal,
		VelocityDegPerSec:        MicrostepsToDegrees(c.velInternal),
		StatusFlags:              c.statusFlags,
		ErrorFlags:               c.errorFlags,
		TemperatureC:             c.temperatureC,
		SupplyVoltageV:           c.supplyVoltageV,
		Successes:                c.successes,
		Errors:                   c.errorsCount,
		LastError:                lastErrS,
		LastCommand:              c.lastCommand,
		LoopPeriod:               c.cfg.LoopPeriod,
		LoopRate:                 c.loopRate,
		OutOfLimits:              c.outOfLimits,
		CorrectionActive:         correctionActive,
		TrajectoryErrorDeg:       c.trajectoryError,
		OffAxisErrorDeg:          c.offAxisError,
		OnTargetTrajectory:       c.onTargetTrajectory,
		OnTargetOffAxis:          c.onTargetOffAxis,
		InnerPTerm:               c.innerPID.PTerm,
		InnerITerm:               c.innerPID.ITerm,
		InnerDTerm:               c.innerPID.DTerm,
		OuterPTerm:               c.outerPID.PTerm,
		OuterITerm:               c.outerPID.ITerm,
		OuterDTerm:               c.outerPID.DTerm,
	}
}

// retryDrive calls fn up to attempts times, sleeping backoff between
// attempts, and returns the last error if every attempt failed.
func retryDrive(attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	return err
}

func (c *Controller) recordOutcome(command string, err error) {
	c.lastCommand = command
	if err != nil {
		c.errorsCount++
		c.lastErr = err
		return
	}
	c.successes++
}

// SetPosition implements spec.md §4.4's set_position(deg) verb:
// precondition IDLE, target state IDLE (re-zeroing does not move the
// axis). The azimuth encoder's sign is inverted relative to the
// commanded direction, so the encoder register write is negated for
// azimuth.
func (c *Controller) SetPosition(deg float64) CommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != IDLE || c.nextState != IDLE {
		return fail(ErrWrongState)
	}

	microsteps := DegreesToMicrosteps(deg)
	encoderMicrosteps := microsteps
	if c.cfg.Kind == axiskind.Azimuth {
		encoderMicrosteps = -microsteps
	}

	err := retryDrive(c.cfg.RetryAttempts, c.cfg.RetryBackoff, func() error {
		if err := c.drive.SetActualPosition(microsteps); err != nil {
			return errors.Wrapf(err, "axis %s: set_actual_position(%d)", c.cfg.Name, microsteps)
		}
		if err := c.drive.SetTargetPosition(microsteps); err != nil {
			return errors.Wrapf(err, "axis %s: set_target_position(%d)", c.cfg.Name, microsteps)
		}
		if err := c.drive.SetAxisParameter(drive.AxisParamEncoderPosition, encoderMicrosteps); err != nil {
			return errors.Wrapf(err, "axis %s: set encoder position(%d)", c.cfg.Name, encoderMicrosteps)
		}
		return nil
	})
	c.recordOutcome("set_position", err)
	if err != nil {
		return fail(err)
	}
	c.nextState = IDLE
	return ok()
}

// GotoPosition implements spec.md §4.4's goto_position(deg) verb, where
// deg is already in the mount frame (the Mount Coordinator performs any
// celestial->mount conversion before calling this). Precondition IDLE,
// target state GOTO_POSITION.
func (c *Controller) GotoPosition(mountDeg float64) CommandResult {
	return c.gotoPosition(mountDeg, []State{IDLE})
}

// GotoMountPosition is the explicit entry point used when the Mount
// Coordinator's goto_mount_position verb is invoked (SPEC_FULL.md §4.4
// expansion: "make this explicit" rather than relying on GotoPosition's
// same precondition implicitly blocking OOL). It is otherwise identical
// to GotoPosition: requires state == nextState == IDLE, which is false
// while the axis is in OOL, so an out-of-limits axis cannot accept a
// mount-frame goto either.
func (c *Controller) GotoMountPosition(mountDeg float64) CommandResult {
	c.mu.Lock()
	blocked := c.state != IDLE || c.nextState != IDLE
	c.mu.Unlock()
	if blocked {
		return fail(ErrWrongState)
	}
	return c.gotoPosition(mountDeg, []State{IDLE})
}

func (c *Controller) gotoPosition(mountDeg float64, allowed []State) CommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inStates(allowed) {
		return fail(ErrWrongState)
	}

	microsteps := DegreesToMicrosteps(mountDeg)
	err := retryDrive(c.cfg.RetryAttempts, c.cfg.RetryBackoff, func() error {
		if err := c.drive.MoveTo(microsteps); err != nil {
			return errors.Wrapf(err, "axis %s: move_to(%d)", c.cfg.Name, microsteps)
		}
		return nil
	})
	c.recordOutcome("goto_position", err)
	if err != nil {
		return fail(err)
	}
	c.nextState = GotoPositionState
	return ok()
}

// GotoVelocity implements spec.md §4.4's goto_velocity(deg/s) verb.
// Precondition IDLE or already GOTO_VELOCITY. The commanded velocity is
// clamped to ±MaxVelocityMicrostepsPerSec, never rejected (spec.md §8
// boundary behavior).
func (c *Controller) GotoVelocity(degPerSec float64) CommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inStates([]State{IDLE, GotoVelocityState}) {
		return fail(ErrWrongState)
	}

	// Clamp in degrees first: an out-of-range request would otherwise
	// overflow int32 in DegreesToMicrosteps before clampVelocity sees it.
	maxDeg := MicrostepsToDegrees(c.cfg.MaxVelocityMicrostepsPerSec)
	if maxDeg < 0 {
		maxDeg = -maxDeg
	}
	if degPerSec > maxDeg {
		degPerSec = maxDeg
	} else if degPerSec < -maxDeg {
		degPerSec = -maxDeg
	}
	microstepsPerSec := clampVelocity(DegreesToMicrosteps(degPerSec), c.cfg.MaxVelocityMicrostepsPerSec)
	err := retryDrive(c.cfg.RetryAttempts, c.cfg.RetryBackoff, func() error {
		if err := c.drive.Rotate(microstepsPerSec); err != nil {
			return errors.Wrapf(err, "axis %s: rotate(%d)", c.cfg.Name, microstepsPerSec)
		}
		return nil
	})
	c.recordOutcome("goto_velocity", err)
	if err != nil {
		return fail(err)
	}
	c.lastCommandedVelocity = microstepsPerSec
	c.nextState = GotoVelocityState
	return ok()
}

// StartTracking implements spec.md §4.4's start_tracking verb.
// Precondition IDLE.
func (c *Controller) StartTracking() CommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != IDLE || c.nextState != IDLE {
		return fail(ErrWrongState)
	}
	c.recordOutcome("start_tracking", nil)
	c.nextState = TrackState
	return ok()
}

// Abort implements spec.md §4.4's abort verb. Precondition: currently in
// GOTO_POSITION, GOTO_VELOCITY, TRACK, or PARK.
func (c *Controller) Abort() CommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	allowed := []State{GotoPositionState, GotoVelocityState, TrackState, ParkState}
	if !c.inStates(allowed) {
		return fail(ErrWrongState)
	}

	err := retryDrive(c.cfg.RetryAttempts, c.cfg.RetryBackoff, func() error {
		if err := c.drive.Stop(); err != nil {
			return errors.Wrapf(err, "axis %s: stop", c.cfg.Name)
		}
		return nil
	})
	c.recordOutcome("abort", err)
	if err != nil {
		return fail(err)
	}
	c.nextState = AbortState
	return ok()
}

// Park implements spec.md §4.4's park verb. Precondition IDLE or OOL.
func (c *Controller) Park() CommandResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inStates([]State{IDLE, OOL}) {
		return fail(ErrWrongState)
	}

	microsteps := DegreesToMicrosteps(ParkTargetDegrees)
	err := retryDrive(c.cfg.RetryAttempts, c.cfg.RetryBackoff, func() error {
		if err := c.drive.MoveTo(microsteps); err != nil {
			return errors.Wrapf(err, "axis %s: park move_to(%d)", c.cfg.Name, microsteps)
		}
		return nil
	})
	c.recordOutcome("park", err)
	if err != nil {
		return fail(err)
	}
	c.nextState = ParkState
	return ok()
}

// inStates reports whether state == nextState and that common value is
// one of allowed, the precondition shape used by verbs whose target
// state requires no transition already in flight.
func (c *Controller) inStates(allowed []State) bool {
	if c.state != c.nextState {
		return false
	}
	return c.inStatesCurrentOnly(allowed)
}

func (c *Controller) inStatesCurrentOnly(allowed []State) bool {
	for _, s := range allowed {
		if c.state == s {
			return true
		}
	}
	return false
}

func clampVelocity(v, max int32) int32 {
	if max < 0 {
		max = -max
	}
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}
