package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expanova/cita-watcher/common/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	clientName     = "cita-watcher"
	reconnectWait  = 2 * time.Second
	duplicateAfter = 10 * time.Minute
)

var (
	ErrJetStreamNotInitialized = errors.New("JetStream not initialized")
	ErrNotConnected            = errors.New("not connected to NATS")
)

// NatsBroker publishes appointment notifications to JetStream.
type NatsBroker struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
}

// SetupNatsBroker connects and makes sure the notification stream exists
// and listens on subjects.
func SetupNatsBroker(ctx context.Context, cfg config.Config, subjects ...string) (*NatsBroker, error) {
	broker, err := NewNatsBroker(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating NATS client: %w", err)
	}

	if _, err := EnsureStream(ctx, broker, broker.stream, subjects); err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("ensuring stream %s: %w", broker.stream, err)
	}
	return broker, nil
}

func NewNatsBroker(cfg config.Config) (*NatsBroker, error) {
	nc := cfg.Nats
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS, notifications will be retried")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Str("server", conn.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS async error")
		}),
	}
	if nc.Username != "" && nc.Password != "" {
		opts = append(opts, nats.UserInfo(nc.Username, nc.Password))
	}

	conn, err := nats.Connect(nc.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", nc.URL(), err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Info().Str("server", conn.ConnectedUrl()).Str("stream", nc.Stream).Msg("Connected to NATS")
	return &NatsBroker{conn: conn, js: js, stream: nc.Stream}, nil
}

// Close drains the connection so pending acks are not lost.
func (b *NatsBroker) Close() error {
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Drain()
}

func (b *NatsBroker) Ping() error {
	if b.conn == nil || !b.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Publish sends data on subject and waits for the stream ack. msgID is
// used by JetStream to drop duplicates, so retries of one notification
// must reuse it.
func (b *NatsBroker) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	if b.js == nil {
		return ErrJetStreamNotInitialized
	}

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}

	ack, err := b.js.Publish(ctx, subject, data, opts...)
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", subject, err)
	}
	if ack.Duplicate {
		log.Debug().Str("subject", subject).Str("msgID", msgID).Msg("NATS dropped duplicate notification")
		return nil
	}

	log.Debug().
		Str("subject", subject).
		Str("stream", ack.Stream).
		Uint64("seq", ack.Sequence).
		Msg("Notification acknowledged by JetStream")
	return nil
}

// CreateStream creates the stream or updates it in place.
func (b *NatsBroker) CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if b.js == nil {
		return nil, ErrJetStreamNotInitialized
	}

	stream, err := b.js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
	}

	log.Info().Str("name", cfg.Name).Strs("subjects", cfg.Subjects).Msg("JetStream stream ready")
	return stream, nil
}

// GetStream looks up a stream. A missing stream wraps jetstream.ErrStreamNotFound.
func (b *NatsBroker) GetStream(ctx context.Context, name string) (jetstream.Stream, error) {
	if b.js == nil {
		return nil, ErrJetStreamNotInitialized
	}

	stream, err := b.js.Stream(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", name, err)
	}
	return stream, nil
}
