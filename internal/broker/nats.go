package broker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"rps_arena/internal/logger"
	"rps_arena/internal/match"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "rps.match."

// Publisher is the subset of *nats.Conn the announcer needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSAnnouncer publishes match lifecycle notices as JSON on
// rps.match.<kind>. Failures are logged and dropped.
type NATSAnnouncer struct {
	pub Publisher
	log *slog.Logger
}

func NewNATSAnnouncer(pub Publisher) *NATSAnnouncer {
	return &NATSAnnouncer{pub: pub, log: logger.With("component", "announcer")}
}

// Connect dials NATS with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("rps_arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func Subject(kind match.NoticeKind) string {
	return subjectPrefix + string(kind)
}

func (a *NATSAnnouncer) Announce(n match.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		a.log.Error("marshal notice", "session", n.SessionID, "error", err)
		return
	}
	if err := a.pub.Publish(Subject(n.Kind), data); err != nil {
		a.log.Warn("publish notice", "session", n.SessionID, "kind", n.Kind, "error", err)
	}
}
