// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nyudlts/ultraviolet-access/internal/access/policy"
	"github.com/nyudlts/ultraviolet-access/internal/identity"
	"github.com/nyudlts/ultraviolet-access/internal/logging"
	"github.com/nyudlts/ultraviolet-access/internal/record"
	"github.com/nyudlts/ultraviolet-access/internal/search"
)

// maxBodyBytes bounds request bodies; record documents are small.
const maxBodyBytes = 1 << 20

// checkRequest is the body of POST /v1/check.
type checkRequest struct {
	Policy   string          `json:"policy"`
	Action   string          `json:"action"`
	Record   json.RawMessage `json:"record,omitempty"`
	Provides []string        `json:"provides"`
	// LinkToken is an optional signed share-link token. A valid token
	// adds the corresponding link need to the identity.
	LinkToken string `json:"link_token,omitempty"`
}

// checkResponse is the body of a successful check.
type checkResponse struct {
	policy.Decision
	RequestID string `json:"request_id"`
}

// filterRequest is the body of POST /v1/filter.
type filterRequest struct {
	Policy   string   `json:"policy"`
	Action   string   `json:"action"`
	Provides []string `json:"provides"`
}

// filterResponse is the body of a successful filter.
type filterResponse struct {
	Policy    string        `json:"policy"`
	Action    string        `json:"action"`
	Query     search.Clause `json:"query"`
	RequestID string        `json:"request_id"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pol, ok := s.policies[req.Policy]
	if !ok {
		writeError(w, ctx, http.StatusBadRequest, "unknown policy "+req.Policy)
		return
	}
	if req.Action == "" {
		writeError(w, ctx, http.StatusBadRequest, "action is required")
		return
	}

	var rec *record.Record
	if len(req.Record) > 0 && string(req.Record) != "null" {
		decoded, err := record.Decode(req.Record)
		if err != nil {
			writeError(w, ctx, http.StatusBadRequest, "invalid record document")
			return
		}
		rec = decoded
	}

	id, ok := s.buildIdentity(w, r, req.Provides, req.LinkToken)
	if !ok {
		return
	}

	decision := pol.Evaluate(req.Action, rec, id)
	slog.DebugContext(ctx, "permission check",
		"policy", decision.Policy,
		"action", decision.Action,
		"allowed", decision.Allowed,
		"reason", decision.Reason)

	writeJSON(w, http.StatusOK, checkResponse{
		Decision:  decision,
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req filterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pol, ok := s.policies[req.Policy]
	if !ok {
		writeError(w, ctx, http.StatusBadRequest, "unknown policy "+req.Policy)
		return
	}
	if req.Action == "" {
		writeError(w, ctx, http.StatusBadRequest, "action is required")
		return
	}

	id, ok := s.buildIdentity(w, r, req.Provides, "")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, filterResponse{
		Policy:    pol.Name(),
		Action:    req.Action,
		Query:     pol.QueryFilter(req.Action, id),
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// buildIdentity parses the provides list and optional link token into
// an identity. Writes the error response and returns false on failure.
func (s *Server) buildIdentity(w http.ResponseWriter, r *http.Request, provides []string, linkToken string) (identity.Identity, bool) {
	ctx := r.Context()

	needs := make([]identity.Need, 0, len(provides)+1)
	for _, p := range provides {
		n, err := identity.ParseNeed(p)
		if err != nil {
			writeError(w, ctx, http.StatusBadRequest, "unrecognized need "+p)
			return identity.Identity{}, false
		}
		needs = append(needs, n)
	}

	if linkToken != "" {
		if s.signer == nil {
			writeError(w, ctx, http.StatusBadRequest, "link tokens are not enabled")
			return identity.Identity{}, false
		}
		claims, err := s.signer.Verify(linkToken, time.Now())
		if err != nil {
			if s.metrics != nil {
				s.metrics.TokenVerifications.WithLabelValues("rejected").Inc()
			}
			slog.DebugContext(ctx, "link token rejected", "error", err)
			writeError(w, ctx, http.StatusBadRequest, "invalid link token")
			return identity.Identity{}, false
		}
		if s.metrics != nil {
			s.metrics.TokenVerifications.WithLabelValues("verified").Inc()
		}
		needs = append(needs, identity.LinkNeed(claims.LinkID))
	}

	return identity.New(needs...), true
}

// decodeBody decodes a JSON request body. Writes the error response and
// returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		writeError(w, r.Context(), http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, ctx context.Context, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: logging.RequestIDFromContext(ctx),
	})
}
