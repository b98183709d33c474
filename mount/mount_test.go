package mount

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openogs/ogscore/axis"
	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/camera"
	"github.com/openogs/ogscore/drive"
	"github.com/openogs/ogscore/ephemeris"
	"github.com/openogs/ogscore/guider"
	"github.com/openogs/ogscore/pidctl"
	"github.com/openogs/ogscore/pointing"
)

func testAxisConfig(name string, kind axiskind.Kind, min, max float64) axis.Config {
	cfg := axis.DefaultConfig()
	cfg.Name = name
	cfg.Kind = kind
	cfg.LimitMinDeg = min
	cfg.LimitMaxDeg = max
	cfg.MaxVelocityMicrostepsPerSec = 51200
	cfg.InnerGains = pidctl.Gains{Kp: 1}
	cfg.OuterGains = pidctl.Gains{Kp: 1}
	cfg.TrajectoryOnTargetDeg = 0.01
	cfg.OffAxisOnTargetDeg = 0.01
	cfg.RetryBackoff = time.Millisecond
	cfg.LoopPeriod = 2 * time.Millisecond
	cfg.PollInterval = 5 * time.Millisecond
	cfg.PublishInterval = 5 * time.Millisecond
	return cfg
}

func newTestCoordinator(t *testing.T) (*Coordinator, *drive.Fake, *drive.Fake) {
	t.Helper()
	azFake := drive.NewFake()
	elFake := drive.NewFake()

	azCtl := axis.New(testAxisConfig("az", axiskind.Azimuth, -270, 270), azFake, ephemeris.Fixed{}, guider.Disabled{}, nil, nil)
	elCtl := axis.New(testAxisConfig("el", axiskind.Elevation, -10, 90), elFake, ephemeris.Fixed{}, guider.Disabled{}, nil, nil)
	azCtl.Start()
	elCtl.Start()
	t.Cleanup(func() {
		azCtl.Stop()
		elCtl.Stop()
	})

	cfg := DefaultConfig()
	cfg.SettleDelay = time.Millisecond
	cfg.WaitPollInterval = time.Millisecond
	cfg.CalibrationCaptureDelay = 2 * time.Millisecond
	cfg.CalibrationSettleDelay = time.Millisecond

	m := New(cfg, azCtl, elCtl, pointing.NewModel(), ephemeris.Fixed{AzDeg: 10, ElDeg: 20}, guider.Disabled{}, camera.Noop{}, nil)
	return m, azFake, elFake
}

func waitForState(t *testing.T, c *axis.Controller, want axis.State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("axis %s did not reach %v within %v (last state %v)", c.Name(), want, timeout, c.State())
}

func TestGotoPositionAppliesIdentityModelAndWaits(t *testing.T) {
	m, _, _ := newTestCoordinator(t)

	res := m.GotoPosition(10, 20)
	if !res.Success {
		t.Fatalf("GotoPosition failed: %s", res.Message)
	}
	// Identity model: mount == celestial, so both axes should settle back
	// to IDLE once PositionReached is true.
	if m.az.State() != axis.IDLE || m.el.State() != axis.IDLE {
		t.Errorf("expected both axes IDLE after GotoPosition returns, got az=%v el=%v", m.az.State(), m.el.State())
	}
}

func TestGotoPositionRejectsOutsideLimits(t *testing.T) {
	m, _, _ := newTestCoordinator(t)

	res := m.GotoPosition(10, 200) // elevation limit is -10..90
	if res.Success {
		t.Fatal("expected GotoPosition to reject an out-of-limits elevation target")
	}
	if m.az.State() != axis.IDLE {
		t.Error("az should not have been commanded when el target was rejected")
	}
}

func TestGotoMountPositionSkipsConversion(t *testing.T) {
	m, azFake, _ := newTestCoordinator(t)
	m.SetPointingModel(pointing.Coefficients{AzOffsetDeg: 5, AzScale: 1, ElScale: 1})

	res := m.GotoMountPosition(50, 30)
	if !res.Success {
		t.Fatalf("GotoMountPosition failed: %s", res.Message)
	}
	// With the 5° azimuth offset applied the drive would be sent to 55°.
	pos, err := azFake.GetActualPosition()
	if err != nil {
		t.Fatalf("GetActualPosition: %v", err)
	}
	if want := axis.DegreesToMicrosteps(50); pos != want {
		t.Errorf("az drive position = %d, want %d (mount frame, no model applied)", pos, want)
	}
}

func TestStartTrackingRequiresWithinLimits(t *testing.T) {
	m, _, _ := newTestCoordinator(t)
	m.ephem = ephemeris.Fixed{AzDeg: 10, ElDeg: 200} // outside el limits

	res := m.StartTracking()
	if res.Success {
		t.Fatal("expected StartTracking to reject a target outside limits")
	}
}

func TestStartTrackingTransitionsBothAxes(t *testing.T) {
	m, _, _ := newTestCoordinator(t)
	m.ephem = ephemeris.Fixed{AzDeg: 10, ElDeg: 20}

	res := m.StartTracking()
	if !res.Success {
		t.Fatalf("StartTracking failed: %s", res.Message)
	}
	waitForState(t, m.az, axis.TrackState, 50*time.Millisecond)
	waitForState(t, m.el, axis.TrackState, 50*time.Millisecond)
}

func TestParkWaitsForBothIdle(t *testing.T) {
	m, _, _ := newTestCoordinator(t)

	res := m.Park()
	if !res.Success {
		t.Fatalf("Park failed: %s", res.Message)
	}
	if m.az.State() != axis.IDLE || m.el.State() != axis.IDLE {
		t.Errorf("expected both axes IDLE after Park returns, got az=%v el=%v", m.az.State(), m.el.State())
	}
}

func TestAbortWaitsForBothIdle(t *testing.T) {
	m, azFake, elFake := newTestCoordinator(t)

	res := m.StartTracking()
	if !res.Success {
		t.Fatalf("StartTracking failed: %s", res.Message)
	}
	waitForState(t, m.az, axis.TrackState, 50*time.Millisecond)
	waitForState(t, m.el, axis.TrackState, 50*time.Millisecond)

	res = m.Abort()
	if !res.Success {
		t.Fatalf("Abort failed: %s", res.Message)
	}
	if m.az.State() != axis.IDLE || m.el.State() != axis.IDLE {
		t.Errorf("expected both axes IDLE after Abort returns, got az=%v el=%v", m.az.State(), m.el.State())
	}
	_ = azFake
	_ = elFake
}

// recordingCapturer records each waypoint it was asked to capture.
type recordingCapturer struct {
	mu        sync.Mutex
	still     bool
	captured  []string
}

func (r *recordingCapturer) StillMode(context.Context) (bool, error) {
	return r.still, nil
}

func (r *recordingCapturer) Capture(_ context.Context, wp camera.Waypoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, wp.Name)
	return nil
}

var _ camera.Capturer = (*recordingCapturer)(nil)

func TestCalibrateRequiresStillMode(t *testing.T) {
	m, _, _ := newTestCoordinator(t)
	cam := &recordingCapturer{still: false}
	m.cam = cam

	err := m.Calibrate(context.Background())
	if err != ErrNotStillMode {
		t.Fatalf("err = %v, want ErrNotStillMode", err)
	}
}

func TestCalibrateRunsAllWaypoints(t *testing.T) {
	m, _, _ := newTestCoordinator(t)
	cam := &recordingCapturer{still: true}
	m.cam = cam
	m.cfg.Waypoints = []camera.Waypoint{
		{Name: "star-a", AzDeg: 10, ElDeg: 20},
		{Name: "star-b", AzDeg: 30, ElDeg: 40},
	}

	if err := m.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	cam.mu.Lock()
	defer cam.mu.Unlock()
	if len(cam.captured) != 2 || cam.captured[0] != "star-a" || cam.captured[1] != "star-b" {
		t.Errorf("captured = %v, want [star-a star-b] in order", cam.captured)
	}
}

func TestCalibrateCancelStopsEarly(t *testing.T) {
	m, _, _ := newTestCoordinator(t)
	cam := &recordingCapturer{still: true}
	m.cam = cam
	m.cfg.CalibrationCaptureDelay = 50 * time.Millisecond
	m.cfg.Waypoints = []camera.Waypoint{
		{Name: "star-a", AzDeg: 10, ElDeg: 20},
		{Name: "star-b", AzDeg: 30, ElDeg: 40},
	}

	done := make(chan error, 1)
	go func() { done <- m.Calibrate(context.Background()) }()

	time.Sleep(5 * time.Millisecond)
	m.CancelCalibration()

	select {
	case err := <-done:
		if err != ErrCalibrationAborted {
			t.Errorf("err = %v, want ErrCalibrationAborted", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Calibrate did not return after cancellation")
	}
}

func TestCalibrateRejectsConcurrentCalls(t *testing.T) {
	m, _, _ := newTestCoordinator(t)
	cam := &recordingCapturer{still: true}
	m.cam = cam
	m.cfg.CalibrationCaptureDelay = 20 * time.Millisecond
	m.cfg.Waypoints = []camera.Waypoint{{Name: "star-a", AzDeg: 10, ElDeg: 20}}

	go m.Calibrate(context.Background())
	time.Sleep(2 * time.Millisecond)

	err := m.Calibrate(context.Background())
	if err != ErrCalibrationInProgress {
		t.Errorf("err = %v, want ErrCalibrationInProgress", err)
	}
	m.CancelCalibration()
}
