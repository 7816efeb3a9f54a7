// Package api exposes the admission controller and queue state over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/ledger"
	"github.com/replyhive/replyhive-go/internal/queue"
	"github.com/replyhive/replyhive-go/internal/rollover"
	"github.com/replyhive/replyhive-go/internal/subscription"
)

// Server is the HTTP API server for the scheduler.
type Server struct {
	ctrl    *admission.Controller
	ledger  ledger.Store
	queue   queue.Store
	proc    *rollover.Processor
	subs    subscription.Source
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server with the given collaborators, CORS origins, and
// optional OIDC auth.
func New(ctrl *admission.Controller, l ledger.Store, q queue.Store, proc *rollover.Processor, subs subscription.Source, corsOrigins []string, oidcCfg OIDCConfig) (*Server, error) {
	s := &Server{
		ctrl:   ctrl,
		ledger: l,
		queue:  q,
		proc:   proc,
		subs:   subs,
		mux:    http.NewServeMux(),
	}
	s.routes()

	var handler http.Handler = s.mux
	if oidcCfg.Enabled {
		provider, err := oidc.NewProvider(context.Background(), oidcCfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("api: oidc discovery: %w", err)
		}
		handler = oidcAuth(provider, oidcCfg.Audience)(handler)
	}
	s.handler = requestID(logging(cors(corsOrigins, handler)))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/admission", s.handleAdmission)
	s.mux.HandleFunc("GET /api/v1/windows/current", s.handleCurrentWindow)
	s.mux.HandleFunc("GET /api/v1/tenants/{id}/usage", s.handleTenantUsage)
	s.mux.HandleFunc("GET /api/v1/queue", s.handleQueueDepth)
	s.mux.HandleFunc("POST /api/v1/rollover", s.handleRollover)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
