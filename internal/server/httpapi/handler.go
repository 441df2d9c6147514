package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/logging"
	"github.com/dmitrijs2005/everkeep/internal/server/services"
)

type BackupService interface {
	Ping(ctx context.Context) error
	Backup(ctx context.Context, ownerKey string, state json.RawMessage, clientUpdatedAt int64) (*services.BackupResult, error)
	Restore(ctx context.Context, ownerKey string) (*services.RestoreResult, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, ip, ownerKey string) bool
}

type Handler struct {
	backups      BackupService
	limiter      RateLimiter
	origins      map[string]struct{}
	maxBodyBytes int64
	logger       logging.Logger
	now          func() time.Time
}

func NewHandler(backups BackupService, limiter RateLimiter, allowedOrigins []string, maxBodyBytes int64, l logging.Logger) *Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		backups:      backups,
		limiter:      limiter,
		origins:      origins,
		maxBodyBytes: maxBodyBytes,
		logger:       l.With("module", "backup_handler"),
		now:          time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	_, allowed := h.origins[origin]

	w.Header().Set("Cache-Control", "no-store")
	if origin != "" && allowed {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Add("Vary", "Origin")
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if origin != "" && !allowed {
		writeError(w, http.StatusForbidden, codeOriginNotAllowed)
		return
	}

	switch action := r.URL.Query().Get("action"); action {
	case "ping":
		h.ping(w, r)
	case "backup":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed)
			return
		}
		h.backup(w, r)
	case "restore":
		if r.Method != http.MethodPost && r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed)
			return
		}
		h.restore(w, r)
	default:
		writeError(w, http.StatusBadRequest, codeUnknownAction)
	}
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.Ping(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pingResponse{OK: true, Time: h.now().UTC().Format(time.RFC3339)})
}

// admit reads the body, resolves the owner key and applies rate limiting.
// It writes the error response itself and returns ok=false on rejection.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request) (string, map[string]json.RawMessage, bool) {
	body, err := readBody(w, r, h.maxBodyBytes)
	if err != nil {
		h.fail(w, r, err)
		return "", nil, false
	}

	key := ownerKey(r, body)
	if key == "" {
		writeError(w, http.StatusBadRequest, codeMissingOwnerKey)
		return "", nil, false
	}

	if !h.limiter.Allow(r.Context(), clientIP(r), key) {
		writeError(w, http.StatusTooManyRequests, codeRateLimited)
		return "", nil, false
	}

	return key, body, true
}

func (h *Handler) backup(w http.ResponseWriter, r *http.Request) {
	key, body, ok := h.admit(w, r)
	if !ok {
		return
	}

	res, err := h.backups.Backup(r.Context(), key, body["state"], clientUpdatedAt(body["clientUpdatedAt"]))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := backupResponse{OK: true, Status: res.Status}
	if res.Status == services.StatusIgnored {
		resp.ServerClientUpdatedAt = res.ServerClientUpdatedAt
	} else {
		resp.ClientUpdatedAt = res.ClientUpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.admit(w, r)
	if !ok {
		return
	}

	res, err := h.backups.Restore(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if res.State == nil {
		writeJSON(w, http.StatusOK, restoreResponse{OK: true})
		return
	}
	writeJSON(w, http.StatusOK, restoreResponse{
		OK:              true,
		State:           res.State,
		ClientUpdatedAt: res.ClientUpdatedAt,
		ServerUpdatedAt: res.ServerUpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge)
	case errors.Is(err, common.ErrMissingOwnerKey):
		writeError(w, http.StatusBadRequest, codeMissingOwnerKey)
	case errors.Is(err, common.ErrInvalidState):
		writeError(w, http.StatusBadRequest, codeInvalidState)
	case errors.Is(err, common.ErrStorageUnavailable):
		h.logger.Error(r.Context(), "storage unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, codeDatabaseUnavailable)
	default:
		h.logger.Error(r.Context(), err.Error())
		writeError(w, http.StatusInternalServerError, codeInternal)
	}
}
