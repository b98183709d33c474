package supervisor

import (
	"errors"
	"testing"
)

func TestBindAssignsAzimuthAndElevationByAddress(t *testing.T) {
	results := map[string]probeResult{
		"/dev/ttyACM0": {address: 1},
		"/dev/ttyACM1": {address: 2},
	}

	az, el, problems, err := bind(results, 1, 2)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("problems = %v, want none", problems)
	}
	if az.Device != "/dev/ttyACM0" {
		t.Errorf("az.Device = %q, want /dev/ttyACM0", az.Device)
	}
	if el.Device != "/dev/ttyACM1" {
		t.Errorf("el.Device = %q, want /dev/ttyACM1", el.Device)
	}
}

func TestBindReportsMissingDriver(t *testing.T) {
	results := map[string]probeResult{
		"/dev/ttyACM0": {address: 1},
	}

	az, el, _, err := bind(results, 1, 2)
	if err == nil {
		t.Fatal("expected an error when elevation never binds")
	}
	if az == nil {
		t.Error("azimuth should still have bound")
	}
	if el != nil {
		t.Error("elevation should be nil")
	}
}

func TestBindReportsHandshakeFailure(t *testing.T) {
	results := map[string]probeResult{
		"/dev/ttyACM0": {address: 1},
		"/dev/ttyACM1": {err: errors.New("timeout")},
	}

	_, el, problems, err := bind(results, 1, 2)
	if err == nil {
		t.Fatal("expected an error, elevation never bound")
	}
	if el != nil {
		t.Error("elevation should be nil after a handshake failure")
	}
	if len(problems) != 1 {
		t.Fatalf("problems = %v, want exactly one entry", problems)
	}
}

func TestBindReportsUnrecognizedAddress(t *testing.T) {
	results := map[string]probeResult{
		"/dev/ttyACM0": {address: 1},
		"/dev/ttyACM1": {address: 99},
	}

	_, _, problems, err := bind(results, 1, 2)
	if err == nil {
		t.Fatal("expected an error, elevation never bound")
	}
	if len(problems) != 1 {
		t.Fatalf("problems = %v, want one entry for the unrecognized address", problems)
	}
}

func TestBindReportsDuplicateAddress(t *testing.T) {
	results := map[string]probeResult{
		"/dev/ttyACM0": {address: 1},
		"/dev/ttyACM1": {address: 1},
		"/dev/ttyACM2": {address: 2},
	}

	az, el, problems, err := bind(results, 1, 2)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if az.Device != "/dev/ttyACM0" {
		t.Errorf("az.Device = %q, want the first device claiming address 1", az.Device)
	}
	if el.Device != "/dev/ttyACM2" {
		t.Errorf("el.Device = %q, want /dev/ttyACM2", el.Device)
	}
	if len(problems) != 1 {
		t.Fatalf("problems = %v, want one entry for the duplicate", problems)
	}
}

func TestDiscoverDevicesPrefersExplicitList(t *testing.T) {
	devices, err := discoverDevices([]string{"/dev/ttyFAKE0", "/dev/ttyFAKE1"})
	if err != nil {
		t.Fatalf("discoverDevices: %v", err)
	}
	if len(devices) != 2 || devices[0] != "/dev/ttyFAKE0" {
		t.Errorf("devices = %v, want the explicit list unchanged", devices)
	}
}
