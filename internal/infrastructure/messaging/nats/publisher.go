package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Connect dials the NATS server at url with unlimited reconnects.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("loans-api"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Publisher sends loan events as JSON to <prefix>.<suffix>, where suffix is
// the event type without its "loan." namespace.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

func NewPublisher(conn *nats.Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event of type typ is published on.
func (p *Publisher) Subject(typ string) string {
	return p.prefix + "." + strings.TrimPrefix(typ, "loan.")
}

func (p *Publisher) Publish(ctx context.Context, event domain.LoanEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Ping reports whether the connection is usable.
func Ping(_ context.Context, conn *nats.Conn) error {
	if !conn.IsConnected() {
		return fmt.Errorf("nats status %s", conn.Status())
	}
	return nil
}

// LogPublisher writes events to the log. It stands in when no broker is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.LoanEvent) error {
	p.log.Info().
		Str("type", event.Type).
		Str("loan_id", event.LoanID.String()).
		Str("user_id", event.UserID.String()).
		Str("actor_id", event.ActorID.String()).
		Str("state", string(event.State)).
		Time("occurred_at", event.OccurredAt).
		Msg("loan event")
	return nil
}
