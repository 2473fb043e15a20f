package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumepress/internal/errcode"
	"resumepress/internal/printer"
)

// GenerationNotifyMessage is the wire message relayed to clients over the
// user notification channel. Field names are part of the protocol.
type GenerationNotifyMessage struct {
	Status        string `json:"status"`
	JobID         uint   `json:"job_id"`
	DocumentID    string `json:"document_id"`
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlation_id"`
	ResultURL     string `json:"result_url,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

func publishNotify(ctx context.Context, client *redis.Client, ownerID uint, msg GenerationNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", ownerID)
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// wireErrorCode maps pipeline stage codes onto the notify protocol's numeric
// vocabulary.
func wireErrorCode(err error) int {
	switch printer.ErrorCode(err) {
	case printer.CodeBrowserUnavailable:
		return errcode.BrowserUnavailable
	case printer.CodeRenderTimeout:
		return errcode.RenderTimeout
	default:
		return errcode.SystemError
	}
}
