package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix is followed by the recipient ID, or "broadcast"
const SubjectPrefix = "heist.notifications."

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSSender publishes notifications as JSON envelopes
type NATSSender struct {
	conn natsPublisher
	nc   *nats.Conn
}

// envelope is the wire format on the bus
type envelope struct {
	EventID       string       `json:"event_id"`
	EventType     string       `json:"event_type"`
	Timestamp     time.Time    `json:"timestamp"`
	SourceService string       `json:"source_service"`
	Payload       Notification `json:"payload"`
}

// ConnectNATS dials the server and returns a sender over the connection
func ConnectNATS(url string) (*NATSSender, error) {
	nc, err := nats.Connect(url,
		nats.Name("heist"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.WithField("url", url).Info("Connected to NATS")
	return &NATSSender{conn: nc, nc: nc}, nil
}

func newNATSSender(conn natsPublisher) *NATSSender {
	return &NATSSender{conn: conn}
}

func (s *NATSSender) Name() string {
	return "nats"
}

// Subject returns the subject a notification is published on
func Subject(n Notification) string {
	if n.IsBroadcast() {
		return SubjectPrefix + "broadcast"
	}
	return SubjectPrefix + strconv.FormatInt(n.RecipientID, 10)
}

func (s *NATSSender) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{
		EventID:       n.ID,
		EventType:     string(n.Kind),
		Timestamp:     n.CreatedAt,
		SourceService: "heist",
		Payload:       n,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := s.conn.Publish(Subject(n), data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close drains the connection if this sender owns one
func (s *NATSSender) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		log.WithError(err).Warn("Failed to drain NATS connection")
	}
}

// LogSender writes notifications to the log, used when no other sink is configured
type LogSender struct{}

func (LogSender) Name() string {
	return "log"
}

func (LogSender) Send(_ context.Context, n Notification) error {
	log.WithFields(log.Fields{
		"id":          n.ID,
		"kind":        n.Kind,
		"recipientID": n.RecipientID,
	}).Info(n.Text)
	return nil
}
