/*Package statushttp exposes a read-only HTTP surface over axis and mount
status snapshots (SPEC_FULL.md §2 expansion: "a minimal, read-only HTTP
status surface ... in the teacher's generichttp/chi style"). No command
verb (goto/track/abort/park/...) is reachable through it, only GET status
routes — the HTTP command surface proper is out of this module's scope
(spec.md §1 Non-goals).

Each route JSON-encodes a status snapshot exactly the way envsrv.Envmon's
HTTPYield does; the /endpoints route lists every route this server
serves, the same route-graph convention cmd/multiserver's BuildMux uses.
*/
package statushttp

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/openogs/ogscore/mount"
)

// StatusSource is anything that can produce a mount.Status snapshot,
// satisfied by *mount.Coordinator.
type StatusSource interface {
	Status() mount.Status
}

// Server is the read-only status HTTP surface for one mount.
type Server struct {
	router chi.Router
}

// New builds a Server serving /mount (the combined az/el/pointing-model
// snapshot), /mount/azimuth, /mount/elevation, and /endpoints.
func New(source StatusSource) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/mount", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, source.Status())
	})
	r.Get("/mount/azimuth", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, source.Status().Azimuth)
	})
	r.Get("/mount/elevation", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, source.Status().Elevation)
	})

	endpoints := []string{"/mount", "/mount/azimuth", "/mount/elevation", "/endpoints"}
	sort.Strings(endpoints)
	r.Get("/endpoints", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, endpoints)
	})

	return &Server{router: r}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
