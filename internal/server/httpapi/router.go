// Package httpapi is the remote authority's JSON API.
//
//	GET    /health
//	GET    /records?ownerId=|patientId=
//	POST   /records            PUT /records            DELETE /records {id}
//	POST   /medical-history    PUT /medical-history
//	POST   /shared-records     DELETE /shared-records {id}
//	POST   /sync               {id, collection, action, data}
//
// When a secret is configured every route but /health requires a bearer
// token issued by package auth.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/logging"
	"github.com/vaxtrace/vaxsync/internal/server/auth"
	"github.com/vaxtrace/vaxsync/internal/server/models"
	"github.com/vaxtrace/vaxsync/internal/server/service"
)

const maxBodyBytes = 1 << 20

type contextKey string

const claimsKey contextKey = "claims"

// RolePatient may only read its own records.
const RolePatient = "patient"

type Handler struct {
	service *service.Service
	secret  []byte
	log     logging.Logger
}

func NewRouter(svc *service.Service, secret string, log logging.Logger) http.Handler {
	h := &Handler{service: svc, secret: []byte(secret), log: log.With("module", "httpapi")}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		if len(h.secret) > 0 {
			r.Use(h.requireAuth)
		}

		r.Get("/records", h.handleListRecords)
		r.Post("/records", h.handleMutation(models.CollectionVaccinations, models.ActionCreate))
		r.Put("/records", h.handleMutation(models.CollectionVaccinations, models.ActionUpdate))
		r.Delete("/records", h.handleMutation(models.CollectionVaccinations, models.ActionDelete))

		r.Post("/medical-history", h.handleMutation(models.CollectionMedicalHistory, models.ActionCreate))
		r.Put("/medical-history", h.handleMutation(models.CollectionMedicalHistory, models.ActionUpdate))

		r.Post("/shared-records", h.handleMutation(models.CollectionSharedRecords, models.ActionCreate))
		r.Delete("/shared-records", h.handleMutation(models.CollectionSharedRecords, models.ActionDelete))

		r.Post("/sync", h.handleSync)
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Debug(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		claims, err := auth.ParseToken(strings.TrimSpace(header[len(common.BearerPrefix):]), h.secret)
		if errors.Is(err, common.ErrTokenExpired) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "token expired"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func subject(ctx context.Context) string {
	if c, ok := claimsFromContext(ctx); ok {
		return c.Subject
	}
	return ""
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("ownerId")
	if owner == "" {
		owner = q.Get("patientId")
	}
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing patientId parameter"})
		return
	}
	if c, ok := claimsFromContext(r.Context()); ok && c.Role == RolePatient && c.Subject != owner {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden"})
		return
	}

	records, err := h.service.List(r.Context(), models.CollectionVaccinations, owner)
	if err != nil {
		h.writeError(r.Context(), w, err, "Failed to retrieve records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "patientId": owner})
}

func (h *Handler) handleMutation(collection, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r)
		if !ok {
			return
		}

		res, err := h.service.Apply(r.Context(), service.Mutation{
			Collection: collection,
			Action:     action,
			Body:       body,
			Subject:    subject(r.Context()),
		})
		if err != nil {
			h.writeError(r.Context(), w, err, "Failed to "+action+" record")
			return
		}

		at := res.At.UnixMilli()
		switch action {
		case models.ActionCreate:
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "record": body, "createdAt": at})
		case models.ActionUpdate:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "record": body, "updatedAt": at})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": res.RecordID, "deletedAt": at})
		}
	}
}

// syncItem is a device queue entry posted to /sync.
type syncItem struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	Data       json.RawMessage `json:"data"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var item syncItem
	if err := json.Unmarshal(body, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid sync item"})
		return
	}
	data := strings.TrimSpace(string(item.Data))
	if item.Collection == "" || item.Action == "" || data == "" || data == "null" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid sync item"})
		return
	}

	res, err := h.service.Apply(r.Context(), service.Mutation{
		EventID:    item.ID,
		Collection: item.Collection,
		Action:     item.Action,
		Body:       item.Data,
		Subject:    subject(r.Context()),
	})
	if err != nil {
		h.writeError(r.Context(), w, err, "Sync failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"synced":    true,
		"id":        res.EventID,
		"timestamp": res.At.UnixMilli(),
	})
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "request body too large"})
		return nil, false
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON"})
		return nil, false
	}
	return json.RawMessage(body), true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, common.ErrConstraintViolation) {
		msg := strings.TrimPrefix(err.Error(), common.ErrConstraintViolation.Error()+": ")
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
		return
	}
	h.log.Error(ctx, fallback, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fallback})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
