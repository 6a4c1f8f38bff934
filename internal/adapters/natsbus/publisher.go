// Package natsbus publishes sitetrack events and audit entries to NATS.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/example/sitetrack/internal/ports/secondary"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "sitetrack"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher implements secondary.EventPublisher and secondary.AuditPublisher.
// Events go to <prefix>.events.<type>, audit entries to <prefix>.audit.<type>.
type Publisher struct {
	conn   Conn
	prefix string
	nc     *nats.Conn // set when the publisher owns the connection
}

// NewPublisher creates a publisher on an existing connection.
func NewPublisher(conn Conn, prefix string) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, name, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p := NewPublisher(nc, prefix)
	p.nc = nc
	return p, nil
}

// Publish sends a real-time event.
func (p *Publisher) Publish(ctx context.Context, event secondary.Event) error {
	return p.send(ctx, p.EventSubject(event.Type), event)
}

// PublishAudit sends an audit entry.
func (p *Publisher) PublishAudit(ctx context.Context, event secondary.AuditEvent) error {
	return p.send(ctx, p.AuditSubject(event.Type), event)
}

// EventSubject returns the subject an event type is published on.
func (p *Publisher) EventSubject(t secondary.EventType) string {
	return p.prefix + ".events." + string(t)
}

// AuditSubject returns the subject an audit type is published on.
func (p *Publisher) AuditSubject(t string) string {
	return p.prefix + ".audit." + t
}

// Close drains the owned connection. No-op for borrowed connections.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

func (p *Publisher) send(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

var (
	_ secondary.EventPublisher = (*Publisher)(nil)
	_ secondary.AuditPublisher = (*Publisher)(nil)
)
