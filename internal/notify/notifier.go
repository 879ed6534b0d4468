// Package notify delivers webhook-style notifications to a third-party
// service. Delivery is best-effort: failures are logged and counted, never
// surfaced to the request that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-taskflow-api/app/observability/metrics"
	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// Notifier is the contract the task service dispatches through.
type Notifier interface {
	Send(ctx context.Context, notifType string, task *types.Task, recipientID string)
}

var _ Notifier = (*HTTPNotifier)(nil)

// payload mirrors the notification service's expected request body.
type payload struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Data struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
		TaskID  string `json:"taskId"`
	} `json:"data"`
}

// HTTPNotifier posts notifications over HTTP with an API-key header and a
// bounded timeout so a slow third party cannot stall callers.
type HTTPNotifier struct {
	logger  *slog.Logger
	client  *http.Client
	url     string
	apiKey  string
	timeout time.Duration
}

// NewHTTPNotifier builds a notifier. An empty serviceURL disables delivery;
// Send then logs and returns, which keeps local development quiet.
func NewHTTPNotifier(serviceURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		url:     serviceURL,
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// Send delivers one notification synchronously within the notifier's timeout.
// Callers that must not block dispatch it on a goroutine.
func (n *HTTPNotifier) Send(ctx context.Context, notifType string, task *types.Task, recipientID string) {
	if n.url == "" || n.apiKey == "" {
		n.logger.Debug("Notification service is not configured, skipping notification",
			slog.String("type", notifType))
		return
	}

	metrics.InitAppMetrics()
	m := metrics.Get()

	var p payload
	p.To = recipientID
	p.Type = notifType
	p.Data.Subject = fmt.Sprintf("Task update: %s", notifType)
	if task != nil {
		p.Data.Message = fmt.Sprintf("Task %s (%s) was %s", task.Title, task.ID, strings.ToLower(notifType))
		p.Data.TaskID = task.ID.String()
	}

	body, err := json.Marshal(p)
	if err != nil {
		n.logger.Error("Failed to marshal notification payload", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("Failed to build notification request", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		m.NotificationFailuresTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("type", notifType)))
		n.logger.Warn("Notification delivery failed",
			slog.String("type", notifType),
			slog.String("recipient", recipientID),
			slog.Any("error", err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		m.NotificationFailuresTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("type", notifType)))
		n.logger.Warn("Notification service rejected request",
			slog.String("type", notifType),
			slog.Int("status", resp.StatusCode),
		)
		return
	}

	m.NotificationsSentTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("type", notifType)))
	n.logger.Debug("Notification sent",
		slog.String("type", notifType),
		slog.String("recipient", recipientID),
	)
}
