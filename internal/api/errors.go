package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// errorEnvelope is the request-level NGSI error body, used when the whole
// payload is rejected before dispatch (per-entity errors travel inside the
// normal response envelopes instead).
type errorEnvelope struct {
	ErrorCode ngsi.StatusCode `json:"errorCode"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeErrorCode writes an NGSI errorCode envelope.
func writeErrorCode(w http.ResponseWriter, status int, reason, details string) {
	writeJSON(w, status, errorEnvelope{
		ErrorCode: ngsi.StatusCode{
			Code:         strconv.Itoa(status),
			ReasonPhrase: reason,
			Details:      details,
		},
	})
}

// writeBadRequest rejects a malformed payload before it reaches a handler.
func writeBadRequest(w http.ResponseWriter, details string) {
	writeErrorCode(w, http.StatusBadRequest, "Bad Request", details)
}
