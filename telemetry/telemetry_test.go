package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestEncodeLineFormatsFields(t *testing.T) {
	stamp := time.Unix(0, 1234)
	line, err := encodeLine("axis_status", map[string]string{"axis": "azimuth"},
		map[string]interface{}{"position_deg": 12.5, "on_target": true}, stamp)
	if err != nil {
		t.Fatalf("encodeLine: %v", err)
	}
	if !strings.HasPrefix(line, "axis_status,axis=azimuth ") {
		t.Errorf("line = %q, wanted measurement+tags prefix", line)
	}
	if !strings.Contains(line, "position_deg=12.5") {
		t.Errorf("line = %q, missing float field", line)
	}
	if !strings.Contains(line, "on_target=true") {
		t.Errorf("line = %q, missing bool field", line)
	}
	if !strings.HasSuffix(line, " 1234") {
		t.Errorf("line = %q, missing timestamp suffix", line)
	}
}

func TestEncodeLineRejectsUnsupportedType(t *testing.T) {
	_, err := encodeLine("m", nil, map[string]interface{}{"bad": []int{1, 2}}, time.Unix(0, 0))
	if err == nil {
		t.Fatal("expected an error for an unsupported field type")
	}
}

func TestRecorderCapturesPoints(t *testing.T) {
	r := &Recorder{}
	if err := r.Publish(context.Background(), "axis_status", map[string]string{"axis": "elevation"}, map[string]interface{}{"velocity": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(r.Points) != 1 {
		t.Fatalf("len(Points) = %d, want 1", len(r.Points))
	}
	if r.Points[0].Measurement != "axis_status" {
		t.Errorf("measurement = %q, want axis_status", r.Points[0].Measurement)
	}
}
