/*Package mount implements the Mount Coordinator (spec.md §4.5): the
two-axis operations layer sitting above a pair of axis.Controllers. It
owns the shared pointing.Model and wires each axis's CoordinateFrame so
the reverse transform (inherently two-dimensional) can be evaluated
without either axis knowing about its sibling directly. Mount-level verbs
convert celestial-frame targets to the mount frame, reject targets
outside either axis's limit envelope, dispatch to both axes, and — where
spec.md calls for it — block until both axes report IDLE.

There is no cross-axis locking here (spec.md §5): a Coordinator issues
independent per-axis commands and polls each axis's own State(). One
axis reaching IDLE before the other is expected, not an error.
*/
package mount

import (
	"context"
	"log"
	"time"

	"github.com/openogs/ogscore/axis"
	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/camera"
	"github.com/openogs/ogscore/ephemeris"
	"github.com/openogs/ogscore/guider"
	"github.com/openogs/ogscore/pointing"
)

// Coordinator is the mount-level command surface: one azimuth axis, one
// elevation axis, the shared pointing model, and the external
// collaborators a calibration pass and a tracking pass need.
type Coordinator struct {
	cfg Config

	az *axis.Controller
	el *axis.Controller

	model *pointing.Model
	ephem ephemeris.Source
	guide guider.Source
	cam   camera.Capturer

	logger *log.Logger

	calibration *calibrationState
}

// New constructs a Coordinator and wires each axis's CoordinateFrame so
// the pointing-model reverse transform can see both axes' mount-frame
// positions. Call Start/Stop on az and el separately; the Coordinator
// does not own their control loop lifecycle.
func New(cfg Config, az, el *axis.Controller, model *pointing.Model, ephem ephemeris.Source, guide guider.Source, cam camera.Capturer, logger *log.Logger) *Coordinator {
	if model == nil {
		model = pointing.NewModel()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "mount ", log.LstdFlags)
	}

	m := &Coordinator{
		cfg:         cfg,
		az:          az,
		el:          el,
		model:       model,
		ephem:       ephem,
		guide:       guide,
		cam:         cam,
		logger:      logger,
		calibration: &calibrationState{},
	}

	az.SetCoordinateFrame(&axis.CoordinateFrame{
		Reverse:           model.Reverse,
		Active:            model.Active,
		OtherAxisMountDeg: el.MountPositionDeg,
	})
	el.SetCoordinateFrame(&axis.CoordinateFrame{
		Reverse:           model.Reverse,
		Active:            model.Active,
		OtherAxisMountDeg: az.MountPositionDeg,
	})

	return m
}

// Status is a combined snapshot of both axes plus the pointing model's
// activity, suitable for a read-only status HTTP response.
type Status struct {
	Azimuth        axis.Status
	Elevation      axis.Status
	PointingActive bool
}

// Status returns a combined snapshot of both axes.
func (m *Coordinator) Status() Status {
	return Status{
		Azimuth:        m.az.Status(),
		Elevation:      m.el.Status(),
		PointingActive: m.model.Active(),
	}
}

// SetPointingModel installs a new coefficient set. The swap is atomic
// (pointing.Model.SetCoefficients), so a control loop tick in progress on
// either axis observes either the old set in full or the new set in full,
// never a partial mix.
func (m *Coordinator) SetPointingModel(c pointing.Coefficients) {
	m.model.SetCoefficients(c)
}

// GotoPosition implements spec.md §4.5's goto_position(az_cel, el_cel):
// converts through the pointing model (a no-op transform when the model
// is at Identity), rejects a target outside either axis's mount-frame
// limits, requires both axes IDLE, commands both, and waits for both to
// return to IDLE.
func (m *Coordinator) GotoPosition(azCelDeg, elCelDeg float64) axis.CommandResult {
	azM, elM := m.model.Apply(azCelDeg, elCelDeg)
	return m.gotoMount(azM, elM)
}

// GotoMountPosition implements spec.md §4.5's goto_mount_position: as
// GotoPosition but skips the celestial->mount conversion.
func (m *Coordinator) GotoMountPosition(azMountDeg, elMountDeg float64) axis.CommandResult {
	return m.gotoMount(azMountDeg, elMountDeg)
}

func (m *Coordinator) gotoMount(azDeg, elDeg float64) axis.CommandResult {
	if !withinLimits(m.az, azDeg) || !withinLimits(m.el, elDeg) {
		return axis.CommandResult{Success: false, Message: ErrOutsideLimits.Error()}
	}

	resAz := m.az.GotoMountPosition(azDeg)
	resEl := m.el.GotoMountPosition(elDeg)
	if combined := combineResults(resAz, resEl); !combined.Success {
		return combined
	}

	m.waitForBothIdle(context.Background())
	return axis.CommandResult{Success: true}
}

// GotoVelocity implements spec.md §4.5's goto_velocity(vaz, vel):
// permitted per-axis whenever that axis is IDLE or already in
// GOTO_VELOCITY. There is no wait here — a velocity move is open-ended
// until stopped.
func (m *Coordinator) GotoVelocity(vazDegPerSec, velDegPerSec float64) axis.CommandResult {
	resAz := m.az.GotoVelocity(vazDegPerSec)
	resEl := m.el.GotoVelocity(velDegPerSec)
	return combineResults(resAz, resEl)
}

// StartTracking implements spec.md §4.5's start_tracking: requires a
// target currently loaded (the ephemeris collaborator can report a
// position for both axes), both axes IDLE, and that position within both
// limit envelopes in the mount frame. Transitions both axes to TRACK.
func (m *Coordinator) StartTracking() axis.CommandResult {
	ctx := context.Background()
	azCel, errAz := m.ephem.PositionAxis(ctx, axiskind.Azimuth)
	elCel, errEl := m.ephem.PositionAxis(ctx, axiskind.Elevation)
	if errAz != nil || errEl != nil {
		return axis.CommandResult{Success: false, Message: ErrTargetUnavailable.Error()}
	}

	azM, elM := m.model.Apply(azCel, elCel)
	if !withinLimits(m.az, azM) || !withinLimits(m.el, elM) {
		return axis.CommandResult{Success: false, Message: ErrOutsideLimits.Error()}
	}

	resAz := m.az.StartTracking()
	resEl := m.el.StartTracking()
	return combineResults(resAz, resEl)
}

// Park implements spec.md §4.5's park: permitted when both axes are IDLE
// or OOL; commands both to the (hard-coded) mount-frame park target and
// waits for both to settle at IDLE.
func (m *Coordinator) Park() axis.CommandResult {
	resAz := m.az.Park()
	resEl := m.el.Park()
	if combined := combineResults(resAz, resEl); !combined.Success {
		return combined
	}
	m.waitForBothIdle(context.Background())
	return axis.CommandResult{Success: true}
}

// Abort implements spec.md §4.5's abort: commands stop on both axes and
// waits for both to reach IDLE.
func (m *Coordinator) Abort() axis.CommandResult {
	resAz := m.az.Abort()
	resEl := m.el.Abort()
	if combined := combineResults(resAz, resEl); !combined.Success {
		return combined
	}
	m.waitForBothIdle(context.Background())
	return axis.CommandResult{Success: true}
}

// withinLimits checks a mount-frame degree value against an axis's soft
// limits. Limit comparisons are always mount-frame (spec.md §4.5 Limit
// policy), never celestial, so they stay valid regardless of pointing-
// model state.
func withinLimits(c *axis.Controller, deg float64) bool {
	min, max := c.Limits()
	return deg >= min && deg <= max
}

// waitForBothIdle blocks until both axes report IDLE, or ctx is done. It
// pauses SettleDelay once before the first check, then polls every
// WaitPollInterval (spec.md §5's named suspension points). There is no
// cross-axis lock: each axis's State() is read independently.
func (m *Coordinator) waitForBothIdle(ctx context.Context) {
	select {
	case <-time.After(m.cfg.SettleDelay):
	case <-ctx.Done():
		return
	}
	for {
		if m.az.State() == axis.IDLE && m.el.State() == axis.IDLE {
			return
		}
		select {
		case <-time.After(m.cfg.WaitPollInterval):
		case <-ctx.Done():
			return
		}
	}
}

// combineResults merges two per-axis CommandResults into one, failing if
// either failed and naming which axis(es) did.
func combineResults(az, el axis.CommandResult) axis.CommandResult {
	if az.Success && el.Success {
		return axis.CommandResult{Success: true}
	}
	msg := ""
	if !az.Success {
		msg += "az: " + az.Message
	}
	if !el.Success {
		if msg != "" {
			msg += "; "
		}
		msg += "el: " + el.Message
	}
	return axis.CommandResult{Success: false, Message: msg}
}
