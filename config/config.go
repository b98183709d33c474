/*Package config loads the typed configuration tree the daemon entrypoint
wires into the supervisor, mount coordinator, and axis controllers
(spec.md §6, SPEC_FULL.md §6 expansion). It follows the teacher's
`cmd/multiserver` layering: a struct of defaults, then an optional YAML
file, then environment overrides, each loaded into a single koanf
instance and finally unmarshaled into Tree.

Hardware topology (serial device paths, the axis_parameters map, soft
limits) is read once at Load and never re-read afterward — spec.md's
Non-goals exclude hot reconfiguration of topology. Soft parameters
(gains, on-target thresholds, poll/publish intervals, log level) may be
picked up again later via Watch, without re-touching topology.
*/
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"
)

// ControllerGains is one PID loop's tunable coefficients.
type ControllerGains struct {
	Kp float64 `koanf:"kp" yaml:"kp"`
	Ki float64 `koanf:"ki" yaml:"ki"`
	Kd float64 `koanf:"kd" yaml:"kd"`
}

// ControllerParameters is an axis's cascaded-loop tuning (spec.md §6,
// "controller_parameters (kp/ki/kd for both loops, sample periods, anti-windup
// caps for both loops)").
type ControllerParameters struct {
	Inner               ControllerGains `koanf:"inner" yaml:"inner"`
	Outer               ControllerGains `koanf:"outer" yaml:"outer"`
	InnerSamplePeriodMs int             `koanf:"inner_sample_period_ms" yaml:"inner_sample_period_ms"`
	OuterSamplePeriodMs int             `koanf:"outer_sample_period_ms" yaml:"outer_sample_period_ms"`
	InnerWindup         float64         `koanf:"inner_windup" yaml:"inner_windup"`
	OuterWindup         float64         `koanf:"outer_windup" yaml:"outer_windup"`
}

// TargetThresholds holds the on-target tolerances for the trajectory and
// off-axis error terms.
type TargetThresholds struct {
	TrajectoryOnTargetDeg float64 `koanf:"trajectory_on_target_deg" yaml:"trajectory_on_target_deg"`
	OffAxisOnTargetDeg    float64 `koanf:"off_axis_on_target_deg" yaml:"off_axis_on_target_deg"`
}

// AxisConfig is one axis's full file-loadable configuration (spec.md §6's
// required per-axis keys).
type AxisConfig struct {
	Name string `koanf:"name" yaml:"name"`

	// SerialAddress is the TMCL serial address the supervisor expects
	// this axis's driver to report (1 => azimuth, 2 => elevation per
	// spec.md §6); used to bind a discovered port to this axis, not to
	// address it directly.
	SerialAddress int32 `koanf:"serial_address" yaml:"serial_address"`

	LimitMinDeg float64 `koanf:"limit_min" yaml:"limit_min"`
	LimitMaxDeg float64 `koanf:"limit_max" yaml:"limit_max"`

	LoopPeriodSec    float64 `koanf:"loop_rate" yaml:"loop_rate"`
	PollIntervalSec  float64 `koanf:"poll_interval" yaml:"poll_interval"`
	PublishIntervalSec float64 `koanf:"publish_interval" yaml:"publish_interval"`

	// AxisParameters holds raw TMCL axis-parameter values keyed by
	// parameter number (spec.md §6: "axis_parameters map (including
	// parameter 4 = max velocity in microsteps)"). Only parameter 4 is
	// read, as the axis's velocity clamp; no entry is written to the drive.
	AxisParameters map[int32]int32 `koanf:"axis_parameters" yaml:"axis_parameters"`

	Controller ControllerParameters `koanf:"controller_parameters" yaml:"controller_parameters"`
	Thresholds TargetThresholds     `koanf:"target_thresholds" yaml:"target_thresholds"`
}

// WaypointConfig is one calibration waypoint, expressed in the mount
// frame (spec.md §6: "list of calibration az/el points").
type WaypointConfig struct {
	Name  string  `koanf:"name" yaml:"name"`
	AzDeg float64 `koanf:"az_deg" yaml:"az_deg"`
	ElDeg float64 `koanf:"el_deg" yaml:"el_deg"`
}

// MountConfig holds the mount-level keys (spec.md §6: "site lat/lon/alt,
// list of calibration az/el points").
type MountConfig struct {
	SiteLatDeg float64 `koanf:"site_lat" yaml:"site_lat"`
	SiteLonDeg float64 `koanf:"site_lon" yaml:"site_lon"`
	SiteAltM   float64 `koanf:"site_alt" yaml:"site_alt"`

	CalibrationWaypoints []WaypointConfig `koanf:"calibration_waypoints" yaml:"calibration_waypoints"`
}

// LogConfig controls the daemon's logging verbosity.
type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
}

// StatusHTTPConfig controls the read-only status surface's listen
// address.
type StatusHTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// TelemetryConfig points the publish task at a Telegraf (or compatible)
// line-protocol listener. Addr empty disables telemetry publication
// entirely (cmd/ogscored wires no Sink rather than failing startup).
type TelemetryConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// Tree is the complete configuration loaded at startup.
type Tree struct {
	Azimuth    AxisConfig       `koanf:"azimuth" yaml:"azimuth"`
	Elevation  AxisConfig       `koanf:"elevation" yaml:"elevation"`
	Mount      MountConfig      `koanf:"mount" yaml:"mount"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
	StatusHTTP StatusHTTPConfig `koanf:"status_http" yaml:"status_http"`
	Telemetry  TelemetryConfig  `koanf:"telemetry" yaml:"telemetry"`

	// SerialDevices, if non-empty, restricts port enumeration to this
	// list rather than scanning every serial device on the host
	// (supervisor package). Camera/object configuration is deliberately
	// absent here: spec.md §6 notes it is "opaque to the core".
	SerialDevices []string `koanf:"serial_devices" yaml:"serial_devices"`
}

// Default returns the Tree populated with the values spec.md specifies
// by number or the teacher's general defaults, leaving site-specific and
// hardware-specific values at their zero value for a deployment's file
// to fill in.
func Default() Tree {
	return Tree{
		Azimuth: AxisConfig{
			Name:               "azimuth",
			SerialAddress:      1,
			LoopPeriodSec:      0.02,
			PollIntervalSec:    0.5,
			PublishIntervalSec: 1.0,
			AxisParameters:     map[int32]int32{4: 51200},
			Controller: ControllerParameters{
				InnerSamplePeriodMs: 20,
				OuterSamplePeriodMs: 20,
				InnerWindup:         51200,
				OuterWindup:         1.0,
			},
			Thresholds: TargetThresholds{
				TrajectoryOnTargetDeg: 0.01,
				OffAxisOnTargetDeg:    0.01,
			},
		},
		Elevation: AxisConfig{
			Name:               "elevation",
			SerialAddress:      2,
			LoopPeriodSec:      0.02,
			PollIntervalSec:    0.5,
			PublishIntervalSec: 1.0,
			AxisParameters:     map[int32]int32{4: 51200},
			Controller: ControllerParameters{
				InnerSamplePeriodMs: 20,
				OuterSamplePeriodMs: 20,
				InnerWindup:         51200,
				OuterWindup:         1.0,
			},
			Thresholds: TargetThresholds{
				TrajectoryOnTargetDeg: 0.01,
				OffAxisOnTargetDeg:    0.01,
			},
		},
		Log:        LogConfig{Level: "info"},
		StatusHTTP: StatusHTTPConfig{Addr: ":8100"},
	}
}

// NeedsTelemetry reports whether the configuration names a telemetry
// listener to publish to.
func (t Tree) NeedsTelemetry() bool {
	return t.Telemetry.Addr != ""
}

// Load reads the configuration tree: defaults, then path if it exists,
// then OGSCORE_-prefixed environment variables. A missing file is not an
// error (matches cmd/multiserver's setupconfig: "file missing, who
// cares"); a malformed one is.
func Load(path string) (Tree, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Tree{}, errors.Wrap(err, "config: loading defaults")
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(errorsCause(err)) && !strings.Contains(err.Error(), "no such file") {
			return Tree{}, errors.Wrapf(err, "config: loading %s", path)
		}
	}

	envProvider := env.Provider("OGSCORE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "OGSCORE_")), "_", ".", -1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Tree{}, errors.Wrap(err, "config: loading environment overrides")
	}

	var t Tree
	if err := k.Unmarshal("", &t); err != nil {
		return Tree{}, errors.Wrap(err, "config: unmarshaling tree")
	}
	return t, nil
}

// errorsCause unwraps a wrapped error down to its root cause so
// os.IsNotExist can inspect it; koanf's file provider returns a plain
// *os.PathError, so this is usually a no-op, but stays defensive against
// future wrapping.
func errorsCause(err error) error {
	type causer interface {
		Cause() error
	}
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		err = c.Cause()
	}
}
