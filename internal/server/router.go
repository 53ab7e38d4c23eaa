package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/metrics"
	"mediadiary-server/internal/routes"
	"mediadiary-server/pkg/cache"
	"mediadiary-server/pkg/signer"
)

type Server struct {
	deps           routes.Deps
	allowedOrigins []string
}

type Option func(*Server)

// WithMetrics records handler metrics and serves GET /metrics from g.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) { s.deps.Metrics, s.deps.Gatherer = m, g }
}

// WithCORS restricts cross-origin callers; none configured allows all.
func WithCORS(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithMutationHook is called with the uid after each committed transition.
func WithMutationHook(fn func(uid string)) Option {
	return func(s *Server) { s.deps.OnMutation = fn }
}

func New(e *diary.Engine, c cache.Cache, sg signer.Codec, opts ...Option) *Server {
	s := &Server{deps: routes.Deps{
		Name:      "mediadiary-server",
		StartedAt: time.Now(),
		Engine:    e,
		Cache:     c,
		Signer:    sg,
	}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	d := s.deps

	// Endpoints declared here for easy scanning
	mux.HandleFunc("GET /health", routes.Health(d))
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", routes.Metrics(d))
	}
	mux.HandleFunc("POST /users/{uid}/diary", routes.CreateEntry(d))
	mux.HandleFunc("GET /users/{uid}/diary", routes.ListEntries(d))
	mux.HandleFunc("GET /users/{uid}/diary/{id}", routes.GetEntry(d))
	mux.HandleFunc("PUT /users/{uid}/diary/{id}", routes.EditEntry(d))
	mux.HandleFunc("DELETE /users/{uid}/diary/{id}", routes.DeleteEntry(d))
	mux.HandleFunc("POST /users/{uid}/bookmarks", routes.AddBookmark(d))
	mux.HandleFunc("GET /users/{uid}/bookmarks", routes.ListBookmarks(d))
	mux.HandleFunc("GET /users/{uid}/facets/{family}", routes.FacetCounts(d))
	mux.HandleFunc("GET /users/{uid}/audit", routes.Audit(d))

	return withCorrelationID(withLogging(withCORS(s.allowedOrigins)(withSecurityHeaders(mux))))
}
