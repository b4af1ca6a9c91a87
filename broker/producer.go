package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"studytrack/studytrack/models"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher sends serialized events to the message broker.
type Publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

type NatsPublisher struct {
	conn   *nats.Conn
	logger logrus.FieldLogger
}

func NewNatsPublisher(url string, logger logrus.FieldLogger) (*NatsPublisher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	conn, err := nats.Connect(url,
		nats.Name("studytrack-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Infof("NATS publisher connected to %s", conn.ConnectedUrl())
	return &NatsPublisher{conn: conn, logger: logger}, nil
}

func (p *NatsPublisher) Publish(subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (p *NatsPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warnf("NATS drain failed: %v", err)
		p.conn.Close()
	}
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, []byte) error { return nil }
func (NoopPublisher) Close()                       {}

// PublishEvent marshals event and sends it on the subject for its type.
func PublishEvent(p Publisher, eventType EventType, event *models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.Publish(Subject(eventType), payload)
}
