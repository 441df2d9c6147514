package httpapi

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the "error" field.
const (
	codeOriginNotAllowed    = "origin_not_allowed"
	codeMissingOwnerKey     = "missing_owner_key"
	codeInvalidState        = "invalid_state"
	codePayloadTooLarge     = "payload_too_large"
	codeRateLimited         = "rate_limited"
	codeUnknownAction       = "unknown_action"
	codeMethodNotAllowed    = "method_not_allowed"
	codeDatabaseUnavailable = "database_unavailable"
	codeInternal            = "internal_error"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type pingResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

type backupResponse struct {
	OK                    bool   `json:"ok"`
	Status                string `json:"status"`
	ClientUpdatedAt       int64  `json:"clientUpdatedAt,omitempty"`
	ServerClientUpdatedAt int64  `json:"serverClientUpdatedAt,omitempty"`
}

type restoreResponse struct {
	OK              bool            `json:"ok"`
	State           json.RawMessage `json:"state"`
	ClientUpdatedAt int64           `json:"clientUpdatedAt,omitempty"`
	ServerUpdatedAt string          `json:"serverUpdatedAt,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{OK: false, Error: code})
}
