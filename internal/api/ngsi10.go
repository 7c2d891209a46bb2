package api

import (
	"encoding/json"
	"net/http"

	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// Tenant selection headers, set by the broker on every call.
const (
	headerService     = "fiware-service"
	headerServicePath = "fiware-servicepath"
)

// tenantFromRequest extracts the tenant from the FIWARE headers, falling
// back to the agent's configured default tenant. Partial headers override
// individually, matching broker behaviour.
func (s *Server) tenantFromRequest(r *http.Request) device.Tenant {
	tenant := s.defaultTenant
	if v := r.Header.Get(headerService); v != "" {
		tenant.Service = v
	}
	if v := r.Header.Get(headerServicePath); v != "" {
		tenant.Subservice = v
	}
	return tenant
}

// handleUpdateContext serves POST /NGSI10/updateContext: the broker pushing
// attribute values towards devices.
func (s *Server) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	var req ngsi.UpdateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed updateContext payload")
		return
	}
	if len(req.ContextElements) == 0 {
		writeBadRequest(w, "contextElements must not be empty")
		return
	}

	tenant := s.tenantFromRequest(r)
	resp := s.dispatcher.UpdateContext(r.Context(), tenant, req)
	writeJSON(w, http.StatusOK, resp)
}

// handleQueryContext serves POST /NGSI10/queryContext: the broker pulling
// lazy attribute values through the query handler.
func (s *Server) handleQueryContext(w http.ResponseWriter, r *http.Request) {
	var req ngsi.QueryContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed queryContext payload")
		return
	}
	if len(req.Entities) == 0 {
		writeBadRequest(w, "entities must not be empty")
		return
	}

	tenant := s.tenantFromRequest(r)
	resp := s.dispatcher.QueryContext(r.Context(), tenant, req)
	writeJSON(w, http.StatusOK, resp)
}

// handleNotification serves POST /notification: an out-of-band device
// change notification, funnelled into the update path.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var req ngsi.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed notification payload")
		return
	}
	if len(req.ContextResponses) == 0 {
		writeBadRequest(w, "contextResponses must not be empty")
		return
	}

	tenant := s.tenantFromRequest(r)
	resp := s.dispatcher.Notification(r.Context(), tenant, req)
	writeJSON(w, http.StatusOK, resp)
}
