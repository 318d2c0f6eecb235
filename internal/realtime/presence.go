package realtime

import (
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// Presence pushes the full online-user list to every live connection whenever
// the registry changes. It recomputes the whole snapshot on every change
// rather than sending deltas, so clients can never drift from missed events.
// Back-to-back changes may coalesce into one broadcast as long as the final
// registry state is eventually delivered.
type Presence struct {
	reg *Registry
	log zerolog.Logger
}

// NewPresence creates a presence broadcaster over the given registry.
func NewPresence(reg *Registry, logger zerolog.Logger) *Presence {
	return &Presence{reg: reg, log: logger.With().Str("component", "presence").Logger()}
}

// Broadcast computes the current online-user list and delivers it to all
// connections, app-wide. The user list and the recipient set come from one
// registry snapshot, so the delivered list reflects the registry at the moment
// of computation. A connection that cannot accept the event is logged and
// skipped; delivery attempts are independent.
func (p *Presence) Broadcast() {
	conns := p.reg.Connections()

	users := make([]models.PresenceUser, 0, len(conns))
	for _, c := range conns {
		users = append(users, models.PresenceUser{ID: c.ID, Name: c.Name})
	}
	payload := PresencePayload{Users: users}

	for _, c := range conns {
		if err := c.Sender.Send(EventPresence, payload); err != nil {
			metrics.DeliveryFailures.Inc()
			p.log.Warn().Err(err).Str("connection_id", c.ID).Msg("presence delivery failed")
		}
	}
	metrics.PresenceBroadcasts.Inc()
}
