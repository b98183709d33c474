package mount

import "errors"

// ErrOutsideLimits is returned by a goto verb when the requested mount-
// frame target falls outside either axis's soft limit envelope (spec.md
// §4.5, "reject if outside either limit").
var ErrOutsideLimits = errors.New("mount: target outside one or both axis limits")

// ErrTargetUnavailable is returned by StartTracking when the ephemeris
// collaborator cannot currently report a position for one or both axes
// ("target loaded" precondition, spec.md §4.5).
var ErrTargetUnavailable = errors.New("mount: no target currently loaded")

// ErrNotStillMode is returned by Calibrate when the camera collaborator
// is not in its non-streaming (STILL) mode.
var ErrNotStillMode = errors.New("mount: camera is not in STILL mode")

// ErrCalibrationInProgress is returned by Calibrate when a previous call
// has not yet finished.
var ErrCalibrationInProgress = errors.New("mount: calibration already in progress")

// ErrCalibrationAborted is returned by Calibrate when CancelCalibration
// interrupts an in-progress sequence.
var ErrCalibrationAborted = errors.New("mount: calibration sequence aborted")
