package pointing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIdentityRoundTrips(t *testing.T) {
	m := NewModel()
	az, el := m.Apply(12.5, 30.0)
	if az != 12.5 || el != 30.0 {
		t.Fatalf("Apply with identity coefficients = (%v, %v), want (12.5, 30)", az, el)
	}
	backAz, backEl := m.Reverse(az, el)
	if backAz != 12.5 || backEl != 30.0 {
		t.Errorf("Reverse with identity coefficients = (%v, %v), want (12.5, 30)", backAz, backEl)
	}
}

func TestApplyReverseRoundTripWithOffsets(t *testing.T) {
	m := NewModel(Coefficients{
		AzOffsetDeg: 1.5,
		ElOffsetDeg: -0.75,
		AzScale:     1.001,
		ElScale:     0.999,
	})

	wantAz, wantEl := 45.0, 20.0
	mountAz, mountEl := m.Apply(wantAz, wantEl)
	gotAz, gotEl := m.Reverse(mountAz, mountEl)

	const tol = 1e-9
	if diff := gotAz - wantAz; diff > tol || diff < -tol {
		t.Errorf("az round trip = %v, want %v", gotAz, wantAz)
	}
	if diff := gotEl - wantEl; diff > tol || diff < -tol {
		t.Errorf("el round trip = %v, want %v", gotEl, wantEl)
	}
}

func TestSetCoefficientsReportsInstalledValue(t *testing.T) {
	m := NewModel()
	if m.Coefficients() != Identity() {
		t.Fatalf("fresh Model should read back Identity()")
	}

	want := Coefficients{AzOffsetDeg: 2, ElOffsetDeg: -3, AzScale: 1.01, ElScale: 0.98}
	m.SetCoefficients(want)

	if got := m.Coefficients(); got != want {
		t.Errorf("Coefficients() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
	if !m.Active() {
		t.Error("Active() should be true once a non-identity coefficient set is installed")
	}
}

func TestSetCoefficientsConcurrentSafe(t *testing.T) {
	m := NewModel()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			m.SetCoefficients(Coefficients{AzScale: 1, ElScale: 1, AzOffsetDeg: float64(i)})
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		m.Apply(1, 1)
	}
	<-done
}
