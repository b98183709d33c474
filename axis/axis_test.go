package axis

import (
	"testing"
	"time"

	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/drive"
	"github.com/openogs/ogscore/ephemeris"
	"github.com/openogs/ogscore/guider"
	"github.com/openogs/ogscore/pidctl"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "az"
	cfg.Kind = axiskind.Azimuth
	cfg.LimitMinDeg = -270
	cfg.LimitMaxDeg = 270
	cfg.MaxVelocityMicrostepsPerSec = 51200
	cfg.InnerGains = pidctl.Gains{Kp: 1}
	cfg.OuterGains = pidctl.Gains{Kp: 1}
	cfg.TrajectoryOnTargetDeg = 0.01
	cfg.OffAxisOnTargetDeg = 0.01
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func newTestController() (*Controller, *drive.Fake) {
	fake := drive.NewFake()
	c := New(testConfig(), fake, ephemeris.Fixed{}, guider.Disabled{}, nil, nil)
	return c, fake
}

func TestSetPositionRequiresIdle(t *testing.T) {
	c, _ := newTestController()
	c.nextState = GotoPositionState
	c.state = GotoPositionState
	res := c.SetPosition(10)
	if res.Success {
		t.Fatal("expected SetPosition to fail while not IDLE")
	}
}

func TestSetPositionInvertsAzimuthEncoder(t *testing.T) {
	c, fake := newTestController()
	res := c.SetPosition(1.0)
	if !res.Success {
		t.Fatalf("SetPosition failed: %s", res.Message)
	}
	wantMicrosteps := DegreesToMicrosteps(1.0)
	enc, err := fake.GetAxisParameter(drive.AxisParamEncoderPosition)
	if err != nil {
		t.Fatalf("GetAxisParameter: %v", err)
	}
	if enc != -wantMicrosteps {
		t.Errorf("encoder position = %d, want %d (inverted for azimuth)", enc, -wantMicrosteps)
	}
}

func TestGotoPositionTransitionsAndRetries(t *testing.T) {
	c, fake := newTestController()
	fake.FailNext = 2 // exercise the retry path

	res := c.GotoPosition(45.0)
	if !res.Success {
		t.Fatalf("GotoPosition failed: %s", res.Message)
	}
	if c.nextState != GotoPositionState {
		t.Errorf("nextState = %v, want GOTO_POSITION", c.nextState)
	}

	// Fake.MoveTo completes instantly: the first tick latches
	// GOTO_POSITION and, seeing position_reached, schedules IDLE; the
	// second tick latches IDLE.
	c.tick()
	if c.state != GotoPositionState {
		t.Fatalf("state after first tick = %v, want GOTO_POSITION (latch happens before action)", c.state)
	}
	c.tick()
	if c.state != IDLE {
		t.Errorf("state after second tick = %v, want IDLE once position_reached", c.state)
	}
}

func TestGotoPositionRejectsWrongState(t *testing.T) {
	c, _ := newTestController()
	c.state = TrackState
	c.nextState = TrackState
	res := c.GotoPosition(10)
	if res.Success {
		t.Fatal("expected GotoPosition to fail from TRACK")
	}
}

func TestGotoMountPositionBlockedByOOL(t *testing.T) {
	c, _ := newTestController()
	c.state = OOL
	c.nextState = OOL
	res := c.GotoMountPosition(10)
	if res.Success {
		t.Fatal("expected GotoMountPosition to be blocked while OOL")
	}
}

func TestGotoVelocityClampsToMax(t *testing.T) {
	c, fake := newTestController()
	hugeDegPerSec := 1e9
	res := c.GotoVelocity(hugeDegPerSec)
	if !res.Success {
		t.Fatalf("GotoVelocity failed: %s", res.Message)
	}
	v, err := fake.GetActualVelocity()
	if err != nil {
		t.Fatalf("GetActualVelocity: %v", err)
	}
	if v != c.cfg.MaxVelocityMicrostepsPerSec {
		t.Errorf("velocity = %d, want clamp at %d", v, c.cfg.MaxVelocityMicrostepsPerSec)
	}
}

func TestAbortClearsPIDsOnReturnToIdle(t *testing.T) {
	c, fake := newTestController()
	c.state = TrackState
	c.nextState = TrackState

	c.innerPID.Compute(5, 0)
	c.outerPID.Compute(5, 0)

	res := c.Abort()
	if !res.Success {
		t.Fatalf("Abort failed: %s", res.Message)
	}
	if c.nextState != AbortState {
		t.Fatalf("nextState = %v, want ABORT", c.nextState)
	}

	fake.Stop()
	c.tick() // latches ABORT, sees velocity==0, resets PIDs, sets nextState=IDLE
	if c.state != AbortState {
		t.Fatalf("state = %v, want ABORT after first tick (latch before action)", c.state)
	}
	if c.nextState != IDLE {
		t.Errorf("nextState = %v, want IDLE once velocity is zero", c.nextState)
	}
	if c.innerPID.PTerm != 0 || c.innerPID.ITerm != 0 || c.innerPID.DTerm != 0 {
		t.Errorf("inner PID terms = %v/%v/%v, want all zero after reset", c.innerPID.PTerm, c.innerPID.ITerm, c.innerPID.DTerm)
	}
	if c.outerPID.PTerm != 0 || c.outerPID.ITerm != 0 || c.outerPID.DTerm != 0 {
		t.Errorf("outer PID terms = %v/%v/%v, want all zero after reset", c.outerPID.PTerm, c.outerPID.ITerm, c.outerPID.DTerm)
	}
}

func TestParkRequiresIdleOrOOL(t *testing.T) {
	c, _ := newTestController()
	c.state = TrackState
	c.nextState = TrackState
	res := c.Park()
	if res.Success {
		t.Fatal("expected Park to fail from TRACK")
	}
}

func TestOutOfLimitsForcesOOLUnlessParked(t *testing.T) {
	c, fake := newTestController()
	if err := fake.MoveTo(DegreesToMicrosteps(400)); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	c.tick()
	if !c.outOfLimits {
		t.Fatal("expected outOfLimits to be set")
	}
	if c.nextState != OOL {
		t.Errorf("nextState = %v, want OOL", c.nextState)
	}
}

func TestOutOfLimitsDoesNotPreemptPark(t *testing.T) {
	c, fake := newTestController()
	c.state = ParkState
	c.nextState = ParkState
	// Actual position is outside limits and still short of the park
	// target (left at 0 by NewFake), so position_reached is false and
	// step 8 leaves nextState alone for step 9 to consider.
	if err := fake.SetActualPosition(DegreesToMicrosteps(400)); err != nil {
		t.Fatalf("SetActualPosition: %v", err)
	}
	c.tick()
	if c.nextState != ParkState {
		t.Errorf("nextState = %v, want PARK to remain the escape path from OOL", c.nextState)
	}
}
