package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// WebhookEventLog is an audit record of one webhook delivery
type WebhookEventLog struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	EventID   string    `json:"event_id,omitempty"`
	Event     string    `json:"event,omitempty"`
	Action    string    `json:"action"`
	SessionID string    `json:"session_id,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Duplicate bool      `json:"duplicate"`
	Verified  bool      `json:"verified"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogSystemEvent indexes a system log entry
func (l *Logger) LogSystemEvent(ctx context.Context, entry any) error {
	if !l.client.IsEnabled() {
		return nil
	}

	return l.index(ctx, SystemLogIndexName(), entry)
}

// LogWebhookEvent indexes the audit record of a webhook delivery
func (l *Logger) LogWebhookEvent(ctx context.Context, event WebhookEventLog) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return l.index(ctx, WebhookIndexName(event.Provider), event)
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}
