package config

import (
	"github.com/openogs/ogscore/axis"
	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/camera"
	"github.com/openogs/ogscore/drive"
	"github.com/openogs/ogscore/mount"
	"github.com/openogs/ogscore/pidctl"
	"github.com/openogs/ogscore/util"
)

// ToAxisConfig converts the file-loadable AxisConfig into an
// axis.Config ready to pass to axis.New. kind disambiguates which
// physical axis this belongs to, since AxisConfig itself carries only a
// Name.
func (a AxisConfig) ToAxisConfig(kind axiskind.Kind) axis.Config {
	cfg := axis.DefaultConfig()
	cfg.Name = a.Name
	cfg.Kind = kind
	cfg.LimitMinDeg = a.LimitMinDeg
	cfg.LimitMaxDeg = a.LimitMaxDeg
	cfg.MaxVelocityMicrostepsPerSec = a.AxisParameters[drive.AxisParamMaxVelocity]

	cfg.InnerGains = pidctl.Gains{
		Kp: a.Controller.Inner.Kp,
		Ki: a.Controller.Inner.Ki,
		Kd: a.Controller.Inner.Kd,
	}
	cfg.OuterGains = pidctl.Gains{
		Kp: a.Controller.Outer.Kp,
		Ki: a.Controller.Outer.Ki,
		Kd: a.Controller.Outer.Kd,
	}
	cfg.InnerSamplePeriod = util.SecsToDuration(float64(a.Controller.InnerSamplePeriodMs) / 1000)
	cfg.OuterSamplePeriod = util.SecsToDuration(float64(a.Controller.OuterSamplePeriodMs) / 1000)
	cfg.InnerWindup = a.Controller.InnerWindup
	cfg.OuterWindup = a.Controller.OuterWindup

	cfg.TrajectoryOnTargetDeg = a.Thresholds.TrajectoryOnTargetDeg
	cfg.OffAxisOnTargetDeg = a.Thresholds.OffAxisOnTargetDeg

	cfg.LoopPeriod = util.SecsToDuration(a.LoopPeriodSec)
	cfg.PollInterval = util.SecsToDuration(a.PollIntervalSec)
	cfg.PublishInterval = util.SecsToDuration(a.PublishIntervalSec)

	return cfg
}

// ToMountConfig converts MountConfig into a mount.Config.
func (mc MountConfig) ToMountConfig() mount.Config {
	cfg := mount.DefaultConfig()
	cfg.SiteLatDeg = mc.SiteLatDeg
	cfg.SiteLonDeg = mc.SiteLonDeg
	cfg.SiteAltM = mc.SiteAltM

	waypoints := make([]camera.Waypoint, len(mc.CalibrationWaypoints))
	for i, w := range mc.CalibrationWaypoints {
		waypoints[i] = camera.Waypoint{Name: w.Name, AzDeg: w.AzDeg, ElDeg: w.ElDeg}
	}
	cfg.Waypoints = waypoints
	return cfg
}

// SoftUpdate is the subset of Tree eligible for hot-reload: gains,
// on-target thresholds, poll/publish cadence, and log level. Hardware
// topology (serial_address, axis_parameters, limits) is deliberately
// absent — spec.md's Non-goals exclude re-binding topology while the
// control loop is running.
type SoftUpdate struct {
	Azimuth   AxisSoftUpdate
	Elevation AxisSoftUpdate
	LogLevel  string
}

// AxisSoftUpdate is one axis's hot-reloadable subset.
type AxisSoftUpdate struct {
	Controller         ControllerParameters
	Thresholds         TargetThresholds
	PollIntervalSec    float64
	PublishIntervalSec float64
}

// ExtractSoft pulls the hot-reloadable subset out of a freshly loaded
// Tree.
func ExtractSoft(t Tree) SoftUpdate {
	return SoftUpdate{
		Azimuth: AxisSoftUpdate{
			Controller:         t.Azimuth.Controller,
			Thresholds:         t.Azimuth.Thresholds,
			PollIntervalSec:    t.Azimuth.PollIntervalSec,
			PublishIntervalSec: t.Azimuth.PublishIntervalSec,
		},
		Elevation: AxisSoftUpdate{
			Controller:         t.Elevation.Controller,
			Thresholds:         t.Elevation.Thresholds,
			PollIntervalSec:    t.Elevation.PollIntervalSec,
			PublishIntervalSec: t.Elevation.PublishIntervalSec,
		},
		LogLevel: t.Log.Level,
	}
}
