package publisher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bookinglabs/booking-pipeline/internal/service/models/message"
)

// HTTPSink delivers messages to an HTTP endpoint by POSTing the payload blob.
// Any non-2xx response is a delivery failure.
type HTTPSink struct {
	client   *http.Client
	endpoint string
}

// NewHTTPSink creates a sink for the given endpoint.
func NewHTTPSink(endpoint string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

// Send posts the message payload to the sink endpoint.
func (s *HTTPSink) Send(ctx context.Context, msg message.Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(msg.Payload))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", msg.CorrelationID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sink responded with status %d", resp.StatusCode)
	}

	return nil
}
