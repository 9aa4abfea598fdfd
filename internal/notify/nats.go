package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/example/interview-scheduler/internal/application"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns the connection defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "interview.events",
		Name:          "interview-scheduler",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher publishes each event as a JSON envelope on
// "<prefix>.<event type>".
type NATSPublisher struct {
	conn   msgPublisher
	prefix string
	nodeID string
	now    func() time.Time
}

// ConnectNATS dials the server and logs connection state changes.
func ConnectNATS(cfg NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("notify: nats url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connect nats: %w", err)
	}
	return conn, nil
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn msgPublisher, subjectPrefix string) *NATSPublisher {
	prefix := strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix, nodeID: nodeID(), now: time.Now}
}

// Notify implements application.Notifier.
func (p *NATSPublisher) Notify(ctx context.Context, event application.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := marshalEnvelope(event, p.nodeID, p.now())
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.Subject(event))
	msg.Data = data
	if event.ID != "" {
		msg.Header.Set(nats.MsgIdHdr, event.ID)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("notify: publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event application.Event) string {
	return p.prefix + "." + string(event.Type)
}

// envelope is the wire form shared by every sink.
type envelope struct {
	MessageID     string    `json:"message_id"`
	EventType     string    `json:"event_type"`
	ApplicationID string    `json:"application_id"`
	EmployerID    string    `json:"employer_id"`
	CandidateID   string    `json:"candidate_id"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor,omitempty"`
	SlotIndex     *int      `json:"slot_index,omitempty"`
	Version       int64     `json:"version"`
	OccurredAt    time.Time `json:"occurred_at"`
	PublishedAt   time.Time `json:"published_at"`
	NodeID        string    `json:"node_id"`
}

func marshalEnvelope(event application.Event, node string, publishedAt time.Time) ([]byte, error) {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	data, err := json.Marshal(envelope{
		MessageID:     id,
		EventType:     string(event.Type),
		ApplicationID: event.ApplicationID,
		EmployerID:    event.EmployerID,
		CandidateID:   event.CandidateID,
		Status:        string(event.Status),
		Actor:         string(event.Actor),
		SlotIndex:     event.SlotIndex,
		Version:       event.Version,
		OccurredAt:    event.OccurredAt.UTC(),
		PublishedAt:   publishedAt.UTC(),
		NodeID:        node,
	})
	if err != nil {
		return nil, fmt.Errorf("notify: encode event: %w", err)
	}
	return data, nil
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}
