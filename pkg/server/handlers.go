// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/rbac"
	"github.com/tigera/policyq/pkg/trace"
	"github.com/tigera/policyq/pkg/version"
)

const maxRequestBytes = 1 << 20

// CanIRequest is the body of POST /v1/can-i. An empty namespace asks about a cluster-wide grant.
type CanIRequest struct {
	User         string   `json:"user"`
	Groups       []string `json:"groups,omitempty"`
	Verb         string   `json:"verb"`
	APIGroup     string   `json:"apiGroup,omitempty"`
	Resource     string   `json:"resource"`
	ResourceName string   `json:"resourceName,omitempty"`
	Namespace    string   `json:"namespace,omitempty"`
}

// CanConnectRequest is the body of POST /v1/can-connect. The protocol defaults to TCP.
type CanConnectRequest struct {
	Source      engine.PodRef `json:"source"`
	Destination engine.PodRef `json:"destination"`
	Port        int           `json:"port"`
	Protocol    string        `json:"protocol,omitempty"`
}

// WhoCanRequest is the body of POST /v1/who-can.
type WhoCanRequest struct {
	Verb         string `json:"verb"`
	APIGroup     string `json:"apiGroup,omitempty"`
	Resource     string `json:"resource"`
	ResourceName string `json:"resourceName,omitempty"`
	Namespace    string `json:"namespace,omitempty"`
}

// DecisionResponse is returned by the can-i and can-connect endpoints.
type DecisionResponse struct {
	Allowed bool        `json:"allowed"`
	Trace   trace.Trace `json:"trace"`
}

// WhoCanResponse is returned by the who-can endpoint.
type WhoCanResponse struct {
	Grants []rbac.Grant `json:"grants"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st, err := s.holder.Load()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"loadedAt": st.LoadedAt(),
		"objects":  st.Snapshot().Len(),
	})
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, version.Get())
}

func (s *Server) handleCanI(w http.ResponseWriter, r *http.Request) {
	var req CanIRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, ok := s.load(w)
	if !ok {
		return
	}

	d, t, err := st.CanI(
		rbac.NewPrincipal(req.User, req.Groups),
		req.Verb, req.APIGroup, req.Resource, req.ResourceName, req.Namespace,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"user": req.User, "verb": req.Verb, "resource": req.Resource, "allowed": d.Allowed}).
		Debug("Answered can-i query")
	writeJSON(w, DecisionResponse{Allowed: d.Allowed, Trace: t})
}

func (s *Server) handleCanConnect(w http.ResponseWriter, r *http.Request) {
	var req CanConnectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Protocol == "" {
		req.Protocol = "TCP"
	}
	st, ok := s.load(w)
	if !ok {
		return
	}

	d, t, err := st.CanConnect(req.Source, req.Destination, req.Port, req.Protocol)
	if err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"source": req.Source, "destination": req.Destination, "allowed": d.Allowed}).
		Debug("Answered can-connect query")
	writeJSON(w, DecisionResponse{Allowed: d.Allowed, Trace: t})
}

func (s *Server) handleWhoCan(w http.ResponseWriter, r *http.Request) {
	var req WhoCanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, ok := s.load(w)
	if !ok {
		return
	}

	grants, err := st.WhoCan(req.Verb, req.APIGroup, req.Resource, req.ResourceName, req.Namespace)
	if err != nil {
		writeError(w, err)
		return
	}
	if grants == nil {
		grants = []rbac.Grant{}
	}
	writeJSON(w, WhoCanResponse{Grants: grants})
}

func (s *Server) load(w http.ResponseWriter) (*engine.Store, bool) {
	st, err := s.holder.Load()
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return st, true
}

// decodeBody decodes the JSON request body into v, writing a 400 response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		err = errors.Wrap(err, "decoding request body")
		log.WithError(err).Debug("Bad request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the engine errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsInvalidQuery(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrNoSnapshot):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.WithError(err).Error("Failed to answer query")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.WithError(err).Error("Failed to marshal response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(append(js, '\n')); err != nil {
		log.WithError(err).Debug("Failed to write response")
	}
}
