package drive

import "testing"

func TestFakeMoveToReachesPosition(t *testing.T) {
	f := NewFake()

	reached, err := f.PositionReached()
	if err != nil {
		t.Fatalf("PositionReached: %v", err)
	}
	if !reached {
		t.Fatal("fresh Fake should start at target == actual == 0")
	}

	if err := f.MoveTo(51200); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	pos, err := f.GetActualPosition()
	if err != nil {
		t.Fatalf("GetActualPosition: %v", err)
	}
	if pos != 51200 {
		t.Errorf("actual position = %d, want 51200", pos)
	}
}

func TestFakeFailNext(t *testing.T) {
	f := NewFake()
	f.FailNext = 2

	if _, err := f.GetActualPosition(); err == nil {
		t.Error("expected first call to fail")
	}
	if _, err := f.GetActualPosition(); err == nil {
		t.Error("expected second call to fail")
	}
	if _, err := f.GetActualPosition(); err != nil {
		t.Errorf("expected third call to succeed, got %v", err)
	}
}

func TestFakeSerialAddressHandshake(t *testing.T) {
	f := NewFake()
	f.SetGlobalParameter(GlobalParamSerialAddress, SerialAddressElevation)

	addr, err := f.GetGlobalParameter(GlobalParamSerialAddress, 0)
	if err != nil {
		t.Fatalf("GetGlobalParameter: %v", err)
	}
	if addr != SerialAddressElevation {
		t.Errorf("address = %d, want %d", addr, SerialAddressElevation)
	}
}

var _ Interface = NewFake()
