package drive

import "fmt"

// frameSize is the length in bytes of both request and reply frames on the
// stepper driver wire. The protocol is modeled on Trinamic's TMCL binary
// transport: fixed-length frames with an 8-bit running-sum checksum, no
// start/stop bytes, no escaping.
const frameSize = 9

// requestFrame is a single outbound transaction: target module address,
// command, type, motor-or-bank selector, and a 4-byte big-endian value.
type requestFrame struct {
	address byte
	command byte
	typ     byte
	bank    byte
	value   uint32
}

func (f requestFrame) encode() [frameSize]byte {
	var buf [frameSize]byte
	buf[0] = f.address
	buf[1] = f.command
	buf[2] = f.typ
	buf[3] = f.bank
	buf[4] = byte(f.value >> 24)
	buf[5] = byte(f.value >> 16)
	buf[6] = byte(f.value >> 8)
	buf[7] = byte(f.value)
	buf[8] = checksum(buf[:8])
	return buf
}

// replyFrame is a single inbound transaction result: the reply address
// (the host's address, echoed back), the module's own address, a status
// byte, the command byte that was executed, and the 4-byte result value.
type replyFrame struct {
	replyAddress byte
	moduleAddr   byte
	status       byte
	command      byte
	value        uint32
}

func decodeReply(buf []byte) (replyFrame, error) {
	if len(buf) != frameSize {
		return replyFrame{}, fmt.Errorf("drive: reply frame has length %d, want %d", len(buf), frameSize)
	}
	want := checksum(buf[:8])
	got := buf[8]
	if want != got {
		return replyFrame{}, ErrChecksumMismatch
	}
	v := uint32(buf[4])<<24 | uint32(buf[5])<<16 | uint32(buf[6])<<8 | uint32(buf[7])
	return replyFrame{
		replyAddress: buf[0],
		moduleAddr:   buf[1],
		status:       buf[2],
		command:      buf[3],
		value:        v,
	}, nil
}

// checksum is the plain 8-bit running sum used by the TMCL wire format; it
// is not a CRC, so it is computed directly here rather than by pulling in
// a CRC library (see DESIGN.md for why github.com/snksoft/crc, the
// teacher's model for wire checksums, isn't imported by this package).
func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// SignExtend32 converts a 32-bit register read off the wire (unsigned, as
// all multi-byte values are transmitted) into its signed interpretation.
// The stepper driver's encoder register in particular is a signed value
// represented as an unsigned word on the wire; values at or above 2^31 are
// negative and must have 2^32 subtracted to recover the signed quantity.
func SignExtend32(raw uint32) int32 {
	if raw >= 1<<31 {
		return int32(int64(raw) - (1 << 32))
	}
	return int32(raw)
}
