/*Package drive provides a thin, synchronous client for a stepper driver
module reachable over a serial link, speaking a TMCL-style fixed-length
binary frame protocol (see frame.go for the wire format).

Every exported method is one request/reply transaction: marshal a command,
send it, block for the reply, unmarshal it, and return a structured result
or an error. The contract is that callers retry on error (spec.md §4.1);
Client makes exactly one attempt per call and never retries internally, so
retry policy (and its associated backoff) stays owned by the caller (the
axis control loop), matching the Python original's separation between
Axis.__executeAxisCommand's retry loop and the bare driver call it wraps.
*/
package drive

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/openogs/ogscore/comm"
)

// Interface is the set of operations the axis controller and mount
// coordinator need from a stepper driver. drive.Client implements it
// against real hardware; drive.Fake implements it for tests.
type Interface interface {
	SetAxisParameter(param, value int32) error
	GetAxisParameter(param int32) (int32, error)
	SetActualPosition(microsteps int32) error
	SetTargetPosition(microsteps int32) error
	MoveTo(microsteps int32) error
	Rotate(microstepsPerSec int32) error
	Stop() error
	GetActualPosition() (int32, error)
	GetActualVelocity() (int32, error)
	PositionReached() (bool, error)
	GetStatusFlags() (uint32, error)
	GetErrorFlags() (uint32, error)
	AnalogInput(channel int) (int32, error)
	GetGlobalParameter(param int32, bank int) (int32, error)
}

// Client is a synchronous TMCL-style driver client over a pooled serial
// connection. A Client talks to exactly one module address; the startup
// handshake (supervisor package) constructs one Client per axis once it
// has determined which serial port carries which address.
type Client struct {
	pool    *comm.Pool
	address byte
	timeout time.Duration
	limiter *rate.Limiter
}

// New returns a Client bound to the given module address, leasing
// connections from pool. maxCommandRate bounds how many transactions per
// second this Client will issue, regardless of how fast the caller calls
// it; this protects the module's serial command processor from being
// overrun by, e.g., a poll loop configured with too short an interval.
func New(pool *comm.Pool, address byte, timeout time.Duration, maxCommandRate rate.Limit) *Client {
	return &Client{
		pool:    pool,
		address: address,
		timeout: timeout,
		limiter: rate.NewLimiter(maxCommandRate, 1),
	}
}

// transact performs one request/reply exchange and returns the reply's
// value field, sign-extended, or an error. Exactly one connection is
// leased from the pool and returned (or destroyed, if it proved bad) per
// call.
func (c *Client) transact(command, typ, bank byte, value int32) (int32, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return 0, errors.Wrap(err, "drive: rate limiter")
	}

	conn, err := c.pool.Get()
	if err != nil {
		return 0, errors.Wrap(err, "drive: acquiring connection")
	}
	var werr error
	defer func() { c.pool.ReturnWithError(conn, werr) }()

	wrap := comm.NewTimeout(conn, c.timeout)

	req := requestFrame{
		address: c.address,
		command: command,
		typ:     typ,
		bank:    bank,
		value:   uint32(value),
	}
	frame := req.encode()
	if _, werr = wrap.Write(frame[:]); werr != nil {
		return 0, errors.Wrap(werr, "drive: writing request frame")
	}

	reply, werr := readFrame(wrap)
	if werr != nil {
		return 0, errors.Wrap(werr, "drive: reading reply frame")
	}

	decoded, derr := decodeReply(reply)
	if derr != nil {
		werr = derr
		return 0, derr
	}
	if serr := statusToError(decoded.status); serr != nil {
		werr = serr
		return 0, serr
	}
	return SignExtend32(decoded.value), nil
}

// readFrame reads exactly frameSize bytes from r, since the wire protocol
// has no delimiter and every reply is the same fixed length.
func readFrame(r io.Reader) ([]byte, error) {
	buf := make([]byte, frameSize)
	n := 0
	for n < frameSize {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// SetAxisParameter writes one axis parameter (spec.md §4.1).
func (c *Client) SetAxisParameter(param, value int32) error {
	_, err := c.transact(cmdSAP, byte(param), 0, value)
	return err
}

// GetAxisParameter reads one axis parameter.
func (c *Client) GetAxisParameter(param int32) (int32, error) {
	return c.transact(cmdGAP, byte(param), 0, 0)
}

// SetActualPosition overwrites the driver's notion of where the axis
// currently is, in microsteps, without commanding any motion. Used by
// set_position (spec.md §4.4) to re-zero an axis while IDLE.
func (c *Client) SetActualPosition(microsteps int32) error {
	return c.SetAxisParameter(AxisParamActualPosition, microsteps)
}

// SetTargetPosition overwrites the driver's target-position register
// without triggering a move.
func (c *Client) SetTargetPosition(microsteps int32) error {
	return c.SetAxisParameter(AxisParamTargetPosition, microsteps)
}

// MoveTo commands an absolute move to the given microstep position.
func (c *Client) MoveTo(microsteps int32) error {
	_, err := c.transact(cmdMVP, mvpTypeAbsolute, 0, microsteps)
	return err
}

// Rotate commands continuous rotation at the given signed velocity, in
// microsteps/s. Positive values rotate in the commanded-positive
// direction (ROR); negative values rotate the opposite way (ROL), sent as
// a positive magnitude per the wire protocol's unsigned rotate commands.
func (c *Client) Rotate(microstepsPerSec int32) error {
	if microstepsPerSec < 0 {
		_, err := c.transact(cmdROL, 0, 0, -microstepsPerSec)
		return err
	}
	_, err := c.transact(cmdROR, 0, 0, microstepsPerSec)
	return err
}

// Stop halts all motion on the axis unconditionally.
func (c *Client) Stop() error {
	_, err := c.transact(cmdMST, 0, 0, 0)
	return err
}

// GetActualPosition reads the driver's actual position register.
func (c *Client) GetActualPosition() (int32, error) {
	return c.GetAxisParameter(AxisParamActualPosition)
}

// GetActualVelocity reads the driver's actual velocity register.
func (c *Client) GetActualVelocity() (int32, error) {
	return c.GetAxisParameter(AxisParamActualVelocity)
}

// PositionReached reports whether the most recent MoveTo has completed.
func (c *Client) PositionReached() (bool, error) {
	target, err := c.GetAxisParameter(AxisParamTargetPosition)
	if err != nil {
		return false, err
	}
	actual, err := c.GetAxisParameter(AxisParamActualPosition)
	if err != nil {
		return false, err
	}
	return target == actual, nil
}

// GetStatusFlags reads the driver's status flag register.
func (c *Client) GetStatusFlags() (uint32, error) {
	v, err := c.GetAxisParameter(AxisParamStatusFlags)
	return uint32(v), err
}

// GetErrorFlags reads the driver's error flag register.
func (c *Client) GetErrorFlags() (uint32, error) {
	v, err := c.GetAxisParameter(AxisParamErrorFlags)
	return uint32(v), err
}

// AnalogInput reads one analog input channel (spec.md §4.4 poll task uses
// channel 8 for supply voltage and channel 9 for temperature).
func (c *Client) AnalogInput(channel int) (int32, error) {
	return c.transact(cmdGIO, gioTypeAnalog, byte(channel), 0)
}

// GetGlobalParameter reads a module-scoped (not axis-scoped) parameter,
// such as the module's own serial address, from the given bank.
func (c *Client) GetGlobalParameter(param int32, bank int) (int32, error) {
	return c.transact(cmdGGP, byte(param), byte(bank), 0)
}

var _ Interface = (*Client)(nil)

// String is used in log lines identifying which module a Client talks to.
func (c *Client) String() string {
	return fmt.Sprintf("drive.Client{address=%d}", c.address)
}
