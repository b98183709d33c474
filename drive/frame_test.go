package drive

import (
	"fmt"
	"testing"
)

func ExampleSignExtend32() {
	fmt.Println(SignExtend32(0))
	fmt.Println(SignExtend32(1))
	fmt.Println(SignExtend32(0xFFFFFFFF))
	fmt.Println(SignExtend32(0x80000000))
	// Output:
	// 0
	// 1
	// -1
	// -2147483648
}

func TestRequestFrameEncodeChecksum(t *testing.T) {
	req := requestFrame{address: 1, command: cmdGAP, typ: 1, bank: 0, value: 0}
	buf := req.encode()
	if len(buf) != frameSize {
		t.Fatalf("encoded frame length = %d, want %d", len(buf), frameSize)
	}
	var sum byte
	for _, b := range buf[:8] {
		sum += b
	}
	if buf[8] != sum {
		t.Errorf("checksum byte = %d, want %d", buf[8], sum)
	}
}

func TestDecodeReplyRoundTrip(t *testing.T) {
	raw := [frameSize]byte{2, 1, statusSuccess, cmdGAP, 0xFF, 0xFF, 0xFF, 0xFE, 0}
	raw[8] = checksum(raw[:8])

	reply, err := decodeReply(raw[:])
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if reply.status != statusSuccess {
		t.Errorf("status = %d, want %d", reply.status, statusSuccess)
	}
	if got, want := SignExtend32(reply.value), int32(-2); got != want {
		t.Errorf("value = %d, want %d", got, want)
	}
}

func TestDecodeReplyBadChecksum(t *testing.T) {
	raw := [frameSize]byte{2, 1, statusSuccess, cmdGAP, 0, 0, 0, 0, 0xAB}
	_, err := decodeReply(raw[:])
	if err != ErrChecksumMismatch {
		t.Errorf("err = %v, want %v", err, ErrChecksumMismatch)
	}
}

func TestDecodeReplyWrongLength(t *testing.T) {
	_, err := decodeReply([]byte{1, 2, 3})
	if err == nil {
		t.Error("expected an error for short frame, got nil")
	}
}

func TestStatusToError(t *testing.T) {
	cases := []struct {
		status byte
		wantOK bool
	}{
		{statusSuccess, true},
		{statusCommandLoaded, true},
		{statusWrongChecksum, false},
		{statusInvalidValue, false},
	}
	for _, c := range cases {
		err := statusToError(c.status)
		if (err == nil) != c.wantOK {
			t.Errorf("statusToError(%d) = %v, wantOK %v", c.status, err, c.wantOK)
		}
	}
}
