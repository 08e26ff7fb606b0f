// Package handler adapts Lambda invocations to the bot: API Gateway requests
// carry Telegram webhook updates, EventBridge schedules trigger the reminder.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"book-reader-bot/internal/domain"
	"book-reader-bot/internal/integrations/telegram"
	"book-reader-bot/internal/scheduler"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	headerWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"
	scheduledEventType  = "Scheduled Event"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) error
}

type ReminderRunner interface {
	RunOnce(ctx context.Context, now time.Time) (scheduler.Report, error)
}

type okResponse struct {
	OK      bool              `json:"ok"`
	Report  *scheduler.Report `json:"report,omitempty"`
	Ignored bool              `json:"ignored,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// eventProbe holds the fields used to tell scheduled events from requests.
type eventProbe struct {
	Source     string `json:"source"`
	DetailType string `json:"detail-type"`
}

type Handler struct {
	dispatcher Dispatcher
	reminder   ReminderRunner
	secret     string
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler creates a Handler. An empty secret disables webhook secret
// checks.
func NewHandler(d Dispatcher, r ReminderRunner, secret string, logger *slog.Logger) (*Handler, error) {
	if d == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	if r == nil {
		return nil, errors.New("handler: reminder must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dispatcher: d, reminder: r, secret: secret, logger: logger, now: time.Now}, nil
}

// Handle serves one Lambda invocation. Webhook failures after the update was
// accepted still answer 200 so Telegram does not redeliver it.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	var probe eventProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return jsonResponse(http.StatusBadRequest, "", errorResponse{Error: "invalid_event"}), nil
	}
	if probe.DetailType == scheduledEventType {
		return h.handleSchedule(ctx, raw), nil
	}
	return h.handleWebhook(ctx, raw), nil
}

func (h *Handler) handleSchedule(ctx context.Context, raw json.RawMessage) events.APIGatewayProxyResponse {
	var ev events.CloudWatchEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Error("invalid scheduled event", "err", err)
		return jsonResponse(http.StatusBadRequest, "", errorResponse{Error: "invalid_event"})
	}
	firedAt := ev.Time
	if firedAt.IsZero() {
		firedAt = h.now()
	}
	rep, err := h.reminder.RunOnce(ctx, firedAt)
	if err != nil {
		// Not returned: an invocation retry would re-send reminders
		// that already went out.
		h.logger.Error("scheduled reminder failed", "event_id", ev.ID, "err", err)
		return jsonResponse(http.StatusInternalServerError, "", errorResponse{Error: "reminder_failed"})
	}
	return jsonResponse(http.StatusOK, "", okResponse{OK: true, Report: &rep})
}

func (h *Handler) handleWebhook(ctx context.Context, raw json.RawMessage) events.APIGatewayProxyResponse {
	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return jsonResponse(http.StatusBadRequest, "", errorResponse{Error: "invalid_request"})
	}
	correlationID := headerValue(req.Headers, headerCorrelationID)
	if correlationID == "" {
		correlationID = newUUID()
	}

	if h.secret != "" && headerValue(req.Headers, headerWebhookSecret) != h.secret {
		return jsonResponse(http.StatusUnauthorized, correlationID, errorResponse{Error: "unauthorized"})
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: "invalid_body"})
		}
		body = decoded
	}

	ev, ok, err := telegram.ParseUpdate(body)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{Error: "invalid_update"})
	}
	if !ok {
		return jsonResponse(http.StatusOK, correlationID, okResponse{OK: true, Ignored: true})
	}
	ev.CorrelationID = correlationID
	// Dispatch logs its own failures.
	_ = h.dispatcher.Dispatch(ctx, ev)
	return jsonResponse(http.StatusOK, correlationID, okResponse{OK: true})
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func jsonResponse(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	buf, err := json.Marshal(body)
	if err != nil {
		buf = []byte(`{"error":"internal"}`)
		status = http.StatusInternalServerError
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if correlationID != "" {
		headers[headerCorrelationID] = correlationID
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(buf)}
}

var newUUID = func() string {
	return uuid.NewString()
}
