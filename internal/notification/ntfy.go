package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultNtfyBaseURL is the public ntfy.sh instance.
const DefaultNtfyBaseURL = "https://ntfy.sh"

// NtfyNotifier publishes alerts to an ntfy.sh topic. ntfy takes the
// message as the raw request body and the title as a header, so no JSON
// envelope is involved.
type NtfyNotifier struct {
	baseURL string
	topic   string
	client  *http.Client
}

// NewNtfyNotifier creates an ntfy notifier for the given topic.
// baseURL may be empty to use the public ntfy.sh instance.
func NewNtfyNotifier(baseURL, topic string) *NtfyNotifier {
	if baseURL == "" {
		baseURL = DefaultNtfyBaseURL
	}
	return &NtfyNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		topic:   topic,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *NtfyNotifier) Send(ctx context.Context, alert Alert) error {
	url := n.baseURL + "/" + n.topic
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(alert.Message))
	if err != nil {
		return fmt.Errorf("ntfy: create request: %w", err)
	}
	req.Header.Set("Title", alert.Title)
	if alert.Level == AlertCritical {
		req.Header.Set("Priority", "high")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[ntfy] sent alert to topic %s: %s", n.topic, alert.Title)
	return nil
}
