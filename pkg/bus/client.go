// Package bus wraps NATS with the routing subjects this service speaks:
// request/reply order routing and a JetStream audit stream of finalized
// decisions.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Subjects
const (
	SubjectRouteRequest   = "routing.request"
	subjectDecisionPrefix = "routing.decision."

	decisionStream = "ROUTING_DECISIONS"
	requestQueue   = "sor-router"
)

// Config holds NATS connection settings
type Config struct {
	URL      string
	ClientID string
}

// Client wraps a NATS connection with routing-specific functionality
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewClient connects to NATS and ensures the decision audit stream
// exists.
func NewClient(config Config) (*Client, error) {
	logger := logrus.WithField("component", "bus-client")

	opts := []nats.Option{
		nats.Name(config.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Errorf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Errorf("NATS error: %v", err)
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		conn:   conn,
		js:     js,
		logger: logger,
	}

	if err := client.ensureDecisionStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return client, nil
}

// ensureDecisionStream creates or updates the decision audit stream
func (c *Client) ensureDecisionStream() error {
	config := &nats.StreamConfig{
		Name:      decisionStream,
		Subjects:  []string{subjectDecisionPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	}

	if _, err := c.js.StreamInfo(decisionStream); err == nil {
		if _, err := c.js.UpdateStream(config); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", decisionStream, err)
		}
		return nil
	}
	if _, err := c.js.AddStream(config); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", decisionStream, err)
	}
	c.logger.Infof("created stream %s", decisionStream)
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// PublishDecision appends a finalized routing decision to the audit
// stream under routing.decision.<symbol>.
func (c *Client) PublishDecision(symbol string, decision interface{}) error {
	msg, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	subject := subjectDecisionPrefix + symbol
	if _, err := c.js.Publish(subject, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	c.logger.Debugf("published decision to %s", subject)
	return nil
}

// RequestHandler answers one routing request payload with a reply
// payload. Handler errors are logged; the requester times out rather
// than receiving a malformed reply.
type RequestHandler func(data []byte) ([]byte, error)

// SubscribeRouteRequests serves routing requests on a queue group so
// multiple router instances share the load.
func (c *Client) SubscribeRouteRequests(handler RequestHandler) (*nats.Subscription, error) {
	sub, err := c.conn.QueueSubscribe(SubjectRouteRequest, requestQueue, func(msg *nats.Msg) {
		reply, err := handler(msg.Data)
		if err != nil {
			c.logger.Errorf("route request handler failed: %v", err)
			return
		}
		if err := msg.Respond(reply); err != nil {
			c.logger.Errorf("failed to respond to route request: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", SubjectRouteRequest, err)
	}

	c.logger.Infof("serving route requests on %s", SubjectRouteRequest)
	return sub, nil
}
