/*Package supervisor performs the process's one piece of hardware
discovery: finding which serial device carries which axis driver before
anything else starts. spec.md §6 describes the driver as "identified by
its reported serial address (1 => azimuth, 2 => elevation)", not by a
fixed device path, since which USB port enumerates as which tty is not
guaranteed stable across a reboot.

BindAxes opens a comm.Pool against every candidate serial device, reads
back each module's global parameter 66 (serial address) through a
throwaway drive.Client, and assigns the resulting Binding to whichever
axis reported the matching address. A driver whose handshake fails,
whose address is a duplicate, or whose address matches neither
configured axis is reported in problems; a configured address with no
matching driver is returned as the error, for the caller to turn into a
fatal startup error (spec.md §6, §7: "Startup configuration error:
fatal; process exits").
*/
package supervisor

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"

	"github.com/openogs/ogscore/comm"
	"github.com/openogs/ogscore/drive"
)

// DefaultSerialGlobs is scanned for candidate driver devices when a
// deployment's configuration does not pin an explicit device list. No
// library in the ecosystem this module draws from enumerates serial
// ports; glob-over-/dev is the same discovery mechanism the Python
// original used (pyserial's comports() is itself a /dev scan on Linux).
var DefaultSerialGlobs = []string{"/dev/ttyACM*", "/dev/ttyUSB*"}

// Baud is the module's fixed serial rate.
const Baud = 1000000

// probeTimeout bounds each handshake transaction and poolIdleTimeout the
// pool's idle connection lifetime; both are generous since this only runs
// once at startup.
const probeTimeout = 500 * time.Millisecond
const poolIdleTimeout = 30 * time.Second
const probeRate = rate.Limit(5)

// Binding is one discovered axis-to-port assignment.
type Binding struct {
	Device        string
	SerialAddress int32
	Client        *drive.Client
}

// discoverDevices returns explicit verbatim if non-empty, else globs
// DefaultSerialGlobs.
func discoverDevices(explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	var found []string
	for _, pattern := range DefaultSerialGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "supervisor: globbing %s", pattern)
		}
		found = append(found, matches...)
	}
	return found, nil
}

func serialConfig(device string) *serial.Config {
	return &serial.Config{
		Name:        device,
		Baud:        Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: probeTimeout,
	}
}

// probeResult is one device's handshake outcome: either a reported serial
// address and a live Client bound to it, or an error.
type probeResult struct {
	address int32
	client  *drive.Client
	err     error
}

// BindAxes probes every candidate device (explicitDevices if given, else
// DefaultSerialGlobs) and returns the Bindings whose reported serial
// address matched wantAzAddress or wantElAddress. az and/or el are nil
// when no candidate matched; problems records a human-readable reason
// for every device that didn't bind, for logging regardless of the
// caller's outcome.
func BindAxes(explicitDevices []string, wantAzAddress, wantElAddress int32) (az, el *Binding, problems []string, err error) {
	devices, err := discoverDevices(explicitDevices)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(devices) == 0 {
		return nil, nil, nil, errors.New("supervisor: no candidate serial devices found")
	}

	results := make(map[string]probeResult, len(devices))
	for _, device := range devices {
		maker := comm.BackingOffSerialConnMaker(serialConfig(device))
		pool := comm.NewPool(1, poolIdleTimeout, maker)

		probe := drive.New(pool, 0, probeTimeout, probeRate)
		addr, probeErr := probe.GetGlobalParameter(drive.GlobalParamSerialAddress, 0)
		if probeErr != nil {
			pool.Close()
			results[device] = probeResult{err: probeErr}
			continue
		}
		results[device] = probeResult{address: addr, client: drive.New(pool, byte(addr), probeTimeout, probeRate)}
	}

	return bind(results, wantAzAddress, wantElAddress)
}

// bind applies the matching policy (spec.md §6: reported address 1 binds
// azimuth, 2 binds elevation; anything else, or a second device
// reporting an already-bound address, is a problem) over a set of probe
// results. Separated from BindAxes so the policy can be exercised without
// a real serial link.
func bind(results map[string]probeResult, wantAzAddress, wantElAddress int32) (az, el *Binding, problems []string, err error) {
	for _, device := range sortedKeys(results) {
		r := results[device]
		if r.err != nil {
			problems = append(problems, fmt.Sprintf("%s: handshake failed: %v", device, r.err))
			continue
		}

		switch r.address {
		case wantAzAddress:
			if az != nil {
				problems = append(problems, fmt.Sprintf("%s: duplicate azimuth address %d (already bound to %s)", device, r.address, az.Device))
				continue
			}
			az = &Binding{Device: device, SerialAddress: r.address, Client: r.client}
		case wantElAddress:
			if el != nil {
				problems = append(problems, fmt.Sprintf("%s: duplicate elevation address %d (already bound to %s)", device, r.address, el.Device))
				continue
			}
			el = &Binding{Device: device, SerialAddress: r.address, Client: r.client}
		default:
			problems = append(problems, fmt.Sprintf("%s: reported unrecognized serial address %d", device, r.address))
		}
	}

	if az == nil || el == nil {
		return az, el, problems, errors.Errorf("supervisor: missing driver(s): azimuth bound=%v elevation bound=%v", az != nil, el != nil)
	}
	return az, el, problems, nil
}

// sortedKeys returns results' device names in a stable order so binding
// is deterministic (and duplicate-detection messages are reproducible)
// regardless of map iteration order.
func sortedKeys(results map[string]probeResult) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
