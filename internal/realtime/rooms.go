package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Rooms fans events out to every connection subscribed to a session. It is
// the live half of the messaging pipeline; delivery is best-effort and a
// slow recipient never blocks or fails the others.
type Rooms struct {
	registry   *Registry
	membership *Membership
	logger     zerolog.Logger
}

func NewRooms(registry *Registry, membership *Membership, logger zerolog.Logger) *Rooms {
	return &Rooms{registry: registry, membership: membership, logger: logger}
}

// BroadcastToSession sends the event to every member of the session.
func (r *Rooms) BroadcastToSession(sessionID uuid.UUID, event interface{}) {
	r.broadcast(sessionID, event, "")
}

// BroadcastToSessionExcept sends the event to every member except the named
// connection. Used for typing indicators, which never echo to their origin.
func (r *Rooms) BroadcastToSessionExcept(sessionID uuid.UUID, exceptConnID string, event interface{}) {
	r.broadcast(sessionID, event, exceptConnID)
}

func (r *Rooms) broadcast(sessionID uuid.UUID, event interface{}, exceptConnID string) {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("event marshal failed")
		return
	}

	for _, connID := range r.membership.MembersOf(sessionID) {
		if connID == exceptConnID {
			continue
		}
		if !r.registry.Send(connID, data) {
			// Gone or buffer full; the member catches up via fetch.
			r.logger.Debug().Str("conn_id", connID).Str("session_id", sessionID.String()).
				Msg("event dropped for connection")
		}
	}
}
