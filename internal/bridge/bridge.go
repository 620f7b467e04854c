// Package bridge delivers one-way events to the container embedding the
// application, when one is configured. Delivery is fire-and-forget: the
// container never acknowledges, and failures are only logged.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/daymark/core/internal/infrastructure/config"
	"github.com/daymark/core/internal/infrastructure/logger"
)

// MessageType identifies the kind of event posted to the container.
type MessageType string

const (
	TypeAuthStateChange MessageType = "AUTH_STATE_CHANGE"
	TypeNavigation      MessageType = "NAVIGATION"
	TypeNotification    MessageType = "NOTIFICATION"
)

// Message is the envelope posted to the container.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// AuthStatePayload accompanies TypeAuthStateChange. UID and Email are only
// present when authenticated.
type AuthStatePayload struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	UID             string `json:"uid,omitempty"`
	Email           string `json:"email,omitempty"`
}

// Poster posts a single event to the host container.
type Poster interface {
	Post(msg Message)
}

// Bridge posts events over HTTP to a configured container endpoint. With no
// endpoint configured every post is a silent no-op, the same as the web app
// running outside its native wrapper.
type Bridge struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

// New creates a bridge from configuration.
func New(cfg config.BridgeConfig, log *logger.Logger) *Bridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bridge{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logger: log.WithComponent("bridge"),
	}
}

// Detected reports whether a container endpoint is configured.
func (b *Bridge) Detected() bool {
	return b.url != ""
}

// Post sends one event to the container. No acknowledgement is expected;
// errors are logged and dropped.
func (b *Bridge) Post(msg Message) {
	if !b.Detected() {
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		b.logger.Errorw("Failed to encode bridge message", "type", msg.Type, "error", err)
		return
	}

	resp, err := b.client.Post(b.url, "application/json", bytes.NewReader(body))
	if err != nil {
		b.logger.Warnw("Failed to post bridge message", "type", msg.Type, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b.logger.Warnw("Bridge endpoint rejected message",
			"type", msg.Type,
			"status", fmt.Sprintf("%d", resp.StatusCode),
		)
	}
}
