package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/subscription"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAdmission is the admission request boundary. When OIDC auth is
// enabled the tenant claim must match the requested tenant.
func (s *Server) handleAdmission(w http.ResponseWriter, r *http.Request) {
	var req domain.AdmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if claimed := TenantFromContext(r.Context()); claimed != "" {
		if req.TenantID == "" {
			req.TenantID = claimed
		} else if req.TenantID != claimed {
			writeError(w, http.StatusForbidden, "tenant_id does not match token")
			return
		}
	}

	if err := domain.ValidateAdmissionRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := s.ctrl.CanMakeCall(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleCurrentWindow(w http.ResponseWriter, r *http.Request) {
	usage, err := s.ledger.Global(r.Context(), s.ctrl.Window())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleTenantUsage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "tenant id required")
		return
	}
	if claimed := TenantFromContext(r.Context()); claimed != "" && claimed != id {
		writeError(w, http.StatusForbidden, "tenant id does not match token")
		return
	}

	sub, err := s.subs.Lookup(r.Context(), id)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownTenant) {
			writeError(w, http.StatusNotFound, "unknown tenant")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	usage, err := s.ledger.Tenant(r.Context(), id, s.ctrl.Window())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	usage.SubscriptionLimit = sub.ReplyLimit

	writeJSON(w, http.StatusOK, map[string]any{
		"usage":        usage,
		"subscription": sub,
	})
}

func (s *Server) handleQueueDepth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.queue.Depth(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, depth)
}

// handleRollover triggers a pass manually; the processor collapses
// concurrent invocations, so this is safe to call on any cadence.
func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	report, err := s.proc.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
