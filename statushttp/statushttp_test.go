package statushttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openogs/ogscore/axis"
	"github.com/openogs/ogscore/mount"
)

type fakeSource struct {
	status mount.Status
}

func (f fakeSource) Status() mount.Status { return f.status }

func TestMountRouteServesJSON(t *testing.T) {
	src := fakeSource{status: mount.Status{
		Azimuth:   axis.Status{Name: "az", State: axis.IDLE},
		Elevation: axis.Status{Name: "el", State: axis.TrackState},
	}}
	srv := New(src)

	req := httptest.NewRequest(http.MethodGet, "/mount", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got mount.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Azimuth.Name != "az" || got.Elevation.Name != "el" {
		t.Errorf("got = %+v, want names az/el", got)
	}
}

func TestAxisSubRoutes(t *testing.T) {
	src := fakeSource{status: mount.Status{
		Azimuth:   axis.Status{Name: "az"},
		Elevation: axis.Status{Name: "el"},
	}}
	srv := New(src)

	for route, wantName := range map[string]string{"/mount/azimuth": "az", "/mount/elevation": "el"} {
		req := httptest.NewRequest(http.MethodGet, route, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		var got axis.Status
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("route %s: Unmarshal: %v", route, err)
		}
		if got.Name != wantName {
			t.Errorf("route %s: Name = %q, want %q", route, got.Name, wantName)
		}
	}
}

func TestEndpointsRouteListsRoutes(t *testing.T) {
	srv := New(fakeSource{})

	req := httptest.NewRequest(http.MethodGet, "/endpoints", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var routes []string
	if err := json.Unmarshal(rec.Body.Bytes(), &routes); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(routes) != 4 {
		t.Errorf("routes = %v, want 4 entries", routes)
	}
}
