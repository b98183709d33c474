package axis

import (
	"time"

	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/pidctl"
)

// Config holds one axis's tuning and topology parameters, loaded from the
// configuration tree at startup (spec.md §3, §6).
type Config struct {
	Name string
	Kind axiskind.Kind

	LimitMinDeg float64
	LimitMaxDeg float64

	MaxVelocityMicrostepsPerSec int32

	InnerGains pidctl.Gains
	OuterGains pidctl.Gains

	// InnerSamplePeriod and OuterSamplePeriod gate their respective PID's
	// Compute calls independently of LoopPeriod (SPEC_FULL.md §4.4's
	// cadence-decoupling expansion). Equal to LoopPeriod by default.
	InnerSamplePeriod time.Duration
	OuterSamplePeriod time.Duration

	InnerWindup float64
	OuterWindup float64

	TrajectoryOnTargetDeg float64
	OffAxisOnTargetDeg    float64

	LoopPeriod      time.Duration
	PollInterval    time.Duration
	PublishInterval time.Duration

	// RetryAttempts and RetryBackoff govern command-verb drive retries
	// (spec.md §4.4: "retries the single drive call up to five times with
	// 0.5s back-off"). OOLRetryAttempts governs the unconditional OOL stop
	// (spec.md §4.4 step 8, "separate retry loop, up to 10 attempts").
	RetryAttempts    int
	RetryBackoff     time.Duration
	OOLRetryAttempts int
}

// DefaultConfig returns a Config with the retry/backoff parameters spec.md
// specifies by number, and equal inner/outer sample periods equal to
// LoopPeriod, leaving gains, limits, and intervals at their zero values for
// the caller to fill in from the configuration tree.
func DefaultConfig() Config {
	loopPeriod := 20 * time.Millisecond
	return Config{
		LoopPeriod:        loopPeriod,
		InnerSamplePeriod: loopPeriod,
		OuterSamplePeriod: loopPeriod,
		RetryAttempts:     5,
		RetryBackoff:      500 * time.Millisecond,
		OOLRetryAttempts:  10,
	}
}

// ParkTargetDegrees is the fixed mount-frame park position for both axes
// (spec.md §9 Open Question, resolved in SPEC_FULL.md §4.4: kept
// hard-coded rather than parameterized).
const ParkTargetDegrees = 0.0

// Status is a read-only snapshot of an axis's observed and control state,
// suitable for telemetry publication or a status HTTP response. It is
// produced under the axis's mutex (spec.md §5, "readers ... snapshot
// under the same mutex").
type Status struct {
	Name string
	Kind axiskind.Kind

	State     State
	NextState State

	PosMountMicrosteps   int32
	PosMountDeg          float64
	PosCelestialDeg      float64
	PosEncoderMicrosteps int32

	VelocityMicrostepsPerSec int32
	VelocityDegPerSec        float64

	StatusFlags uint32
	ErrorFlags  uint32

	TemperatureC    float64
	SupplyVoltageV  float64

	Successes uint64
	Errors    uint64
	LastError string
	LastCommand string

	LoopPeriod time.Duration
	LoopRate   float64

	OutOfLimits      bool
	CorrectionActive bool

	TrajectoryErrorDeg  float64
	OffAxisErrorDeg     float64
	OnTargetTrajectory  bool
	OnTargetOffAxis     bool

	InnerPTerm, InnerITerm, InnerDTerm float64
	OuterPTerm, OuterITerm, OuterDTerm float64
}
