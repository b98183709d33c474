package mount

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// calibrationState guards the single in-flight Calibrate call and its
// cancellation channel.
type calibrationState struct {
	mu       sync.Mutex
	running  bool
	cancelCh chan struct{}
}

// Calibrate implements spec.md §4.5's calibrate operation: for each
// configured mount-frame waypoint, goto and wait for both axes to settle,
// pause roughly CalibrationCaptureDelay, trigger a capture via the camera
// collaborator, then pause CalibrationSettleDelay before the next
// waypoint. It blocks until every waypoint completes, the context is
// canceled, or CancelCalibration is called, and requires the camera to be
// in its non-streaming (STILL) mode before starting.
//
// Only one Calibrate call may run at a time; a second concurrent call
// returns ErrCalibrationInProgress immediately.
func (m *Coordinator) Calibrate(ctx context.Context) error {
	m.calibration.mu.Lock()
	if m.calibration.running {
		m.calibration.mu.Unlock()
		return ErrCalibrationInProgress
	}
	m.calibration.running = true
	cancel := make(chan struct{})
	m.calibration.cancelCh = cancel
	m.calibration.mu.Unlock()

	defer func() {
		m.calibration.mu.Lock()
		m.calibration.running = false
		m.calibration.cancelCh = nil
		m.calibration.mu.Unlock()
	}()

	still, err := m.cam.StillMode(ctx)
	if err != nil {
		return errors.Wrap(err, "mount: checking camera still mode")
	}
	if !still {
		return ErrNotStillMode
	}

	for i, wp := range m.cfg.Waypoints {
		if done, err := waitOrCancel(ctx, cancel, 0); done {
			return err
		}

		res := m.GotoMountPosition(wp.AzDeg, wp.ElDeg)
		if !res.Success {
			return errors.Errorf("mount: calibration waypoint %s: goto failed: %s", wp.Name, res.Message)
		}

		if done, err := waitOrCancel(ctx, cancel, m.cfg.CalibrationCaptureDelay); done {
			return err
		}

		if err := m.cam.Capture(ctx, wp); err != nil {
			return errors.Wrapf(err, "mount: calibration waypoint %s: capture failed", wp.Name)
		}

		if i < len(m.cfg.Waypoints)-1 {
			if done, err := waitOrCancel(ctx, cancel, m.cfg.CalibrationSettleDelay); done {
				return err
			}
		}
	}
	return nil
}

// CancelCalibration interrupts an in-progress Calibrate call at its next
// waypoint boundary or wait point, causing it to return
// ErrCalibrationAborted. It is a no-op if no calibration is running.
func (m *Coordinator) CancelCalibration() {
	m.calibration.mu.Lock()
	defer m.calibration.mu.Unlock()
	if m.calibration.cancelCh == nil {
		return
	}
	select {
	case <-m.calibration.cancelCh:
	default:
		close(m.calibration.cancelCh)
	}
}

// waitOrCancel waits delay (which may be zero, for an immediate check),
// returning (true, err) if the wait was interrupted by ctx or cancel
// instead of completing normally.
func waitOrCancel(ctx context.Context, cancel chan struct{}, delay time.Duration) (bool, error) {
	var timerC <-chan time.Time
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		timerC = t.C
	} else {
		c := make(chan time.Time, 1)
		c <- time.Time{}
		timerC = c
	}
	select {
	case <-timerC:
		return false, nil
	case <-ctx.Done():
		return true, ctx.Err()
	case <-cancel:
		return true, ErrCalibrationAborted
	}
}
