package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/repository"
	"github.com/tripsignal/tripsignal/internal/service"
)

type AdminHandler struct {
	token      string
	outbox     *repository.OutboxRepository
	matcher    *service.MatchService
	adminEmail string
}

func NewAdminHandler(
	token string,
	outbox *repository.OutboxRepository,
	matcher *service.MatchService,
	adminEmail string,
) *AdminHandler {
	return &AdminHandler{
		token:      token,
		outbox:     outbox,
		matcher:    matcher,
		adminEmail: adminEmail,
	}
}

// RequireToken rejects requests without a matching X-Admin-Token header.
// An empty configured token disables the whole admin surface.
func (h *AdminHandler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token == "" {
			writeError(w, http.StatusForbidden, "admin surface is disabled")
			return
		}
		got := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GET /admin/outbox?status=&limit=
// 200: { "messages": [...], "counts": {...} }
// 400: invalid params
// 500: internal error
func (h *AdminHandler) ListOutbox(w http.ResponseWriter, r *http.Request) {
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", "pending", "sending", "sent", "dead":
	default:
		writeError(w, http.StatusBadRequest, "status must be one of pending, sending, sent, dead")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	msgs, err := h.outbox.ListRecent(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	counts, err := h.outbox.CountByStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, outboxResponse(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": out,
		"counts":   counts,
	})
}

// POST /admin/test-email {"to": "..."}
// 202: { "id": "...", "status": "pending" }
// 400: invalid input
// 500: internal error
func (h *AdminHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	to := strings.TrimSpace(req.To)
	if to == "" {
		to = h.adminEmail
	}
	if to == "" || !strings.Contains(to, "@") {
		writeError(w, http.StatusBadRequest, "to must be an email address")
		return
	}

	msg := &models.OutboxMessage{
		Channel:  models.ChannelEmail,
		ToEmail:  to,
		Subject:  "Trip Signal test email",
		BodyText: "This is a test message from the Trip Signal notification pipeline.\nIf you can read this, outbox delivery is working.",
	}
	if err := h.outbox.Enqueue(r.Context(), msg); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     msg.ID,
		"status": "pending",
	})
}

// POST /admin/runs {"type": "manual"}
// Runs a matching pass over already-stored deals, without scraping.
// 200: run summary
// 400: invalid input
// 500: pass failed
func (h *AdminHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	runType := models.RunTypeManual
	if r.Body != nil && r.ContentLength != 0 {
		var req struct {
			Type string `json:"type"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
			return
		}
		if t := strings.TrimSpace(req.Type); t != "" {
			if t != models.RunTypeManual && t != models.RunTypeTest {
				writeError(w, http.StatusBadRequest, "type must be manual or test")
				return
			}
			runType = t
		}
	}

	run, err := h.matcher.RunMatchingPass(r.Context(), runType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "matching pass failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":          run.ID,
		"run_type":        run.RunType,
		"status":          run.Status,
		"matches_created": run.MatchesCreated,
		"started_at":      run.StartedAt,
	})
}

func outboxResponse(m *models.OutboxMessage) map[string]any {
	out := map[string]any{
		"id":         m.ID,
		"status":     m.Status,
		"attempts":   m.Attempts,
		"channel":    m.Channel,
		"to_email":   m.ToEmail,
		"subject":    m.Subject,
		"created_at": m.CreatedAt,
		"updated_at": m.UpdatedAt,
	}
	if m.SentAt != nil {
		out["sent_at"] = *m.SentAt
	}
	if m.NextAttemptAt != nil {
		out["next_attempt_at"] = *m.NextAttemptAt
	}
	if m.LastError != nil {
		out["last_error"] = *m.LastError
	}
	if m.SignalID != nil {
		out["signal_id"] = *m.SignalID
	}
	if m.MatchID != nil {
		out["match_id"] = *m.MatchID
	}
	return out
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("only one JSON object is allowed")
	}

	return nil
}
