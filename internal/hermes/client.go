package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectEventPrefix prefixes widget telemetry: tailored.events.<type>.
	SubjectEventPrefix = "tailored.events."
	// SubjectDecisionUpdated carries every decision applied to a session store.
	SubjectDecisionUpdated = "tailored.decision.updated"
	// SubjectDecisionRequest asks the engine to run a decision cycle.
	SubjectDecisionRequest = "tailored.decision.request"
	// SubjectRegistered announces a running instance.
	SubjectRegistered = "tailored.service.registered"
)

// EventSubject returns the subject a tracked event of the given type is published on.
func EventSubject(eventType string) string {
	return SubjectEventPrefix + eventType
}

// DecisionRequest is the payload of tailored.decision.request. It mirrors the
// HTTP decide body so edge workers can trigger a cycle without the API.
type DecisionRequest struct {
	VisitorID     string `json:"visitor_id"`
	URL           string `json:"url"`
	Referrer      string `json:"referrer"`
	UserAgent     string `json:"user_agent"`
	ViewportWidth *int   `json:"viewport_width,omitempty"`
	Hour          *int   `json:"hour,omitempty"`
	Intent        string `json:"intent,omitempty"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("tailored"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Connected reports whether the underlying connection is currently up.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
