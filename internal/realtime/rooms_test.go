package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindline/mindline/internal/domain/mentoring"
)

func newTestRooms() (*Rooms, *Registry, *Membership) {
	registry := NewRegistry()
	membership := NewMembership()
	return NewRooms(registry, membership, zerolog.Nop()), registry, membership
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case data := <-c.send:
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestBroadcastToSession(t *testing.T) {
	rooms, registry, membership := newTestRooms()
	sessionID := uuid.New()

	a := newClient("conn-a", mentoring.Principal{UserID: "u1"}, nil)
	b := newClient("conn-b", mentoring.Principal{UserID: "u2"}, nil)
	outsider := newClient("conn-c", mentoring.Principal{UserID: "u3"}, nil)
	for _, c := range []*Client{a, b, outsider} {
		registry.Register(c)
	}
	membership.Join(sessionID, a.ID)
	membership.Join(sessionID, b.ID)

	rooms.BroadcastToSession(sessionID, map[string]string{"type": "new_message"})

	for _, c := range []*Client{a, b} {
		msgs := drain(c)
		if len(msgs) != 1 {
			t.Fatalf("%s received %d messages, want 1", c.ID, len(msgs))
		}
		var ev map[string]string
		if err := json.Unmarshal(msgs[0], &ev); err != nil {
			t.Fatal(err)
		}
		if ev["type"] != "new_message" {
			t.Errorf("%s got %v", c.ID, ev)
		}
	}
	if msgs := drain(outsider); len(msgs) != 0 {
		t.Errorf("non-member received %d messages", len(msgs))
	}
}

func TestBroadcastToSessionExcept(t *testing.T) {
	rooms, registry, membership := newTestRooms()
	sessionID := uuid.New()

	origin := newClient("conn-origin", mentoring.Principal{UserID: "u1"}, nil)
	other := newClient("conn-other", mentoring.Principal{UserID: "u2"}, nil)
	registry.Register(origin)
	registry.Register(other)
	membership.Join(sessionID, origin.ID)
	membership.Join(sessionID, other.ID)

	rooms.BroadcastToSessionExcept(sessionID, origin.ID, map[string]bool{"isTyping": true})

	if msgs := drain(origin); len(msgs) != 0 {
		t.Errorf("origin received its own event")
	}
	if msgs := drain(other); len(msgs) != 1 {
		t.Errorf("other received %d messages, want 1", len(msgs))
	}
}

func TestBroadcastIsolatesSlowRecipient(t *testing.T) {
	rooms, registry, membership := newTestRooms()
	sessionID := uuid.New()

	slow := newClient("conn-slow", mentoring.Principal{UserID: "u1"}, nil)
	healthy := newClient("conn-healthy", mentoring.Principal{UserID: "u2"}, nil)
	registry.Register(slow)
	registry.Register(healthy)
	membership.Join(sessionID, slow.ID)
	membership.Join(sessionID, healthy.ID)

	for i := 0; i < cap(slow.send); i++ {
		slow.TrySend([]byte("backlog"))
	}

	rooms.BroadcastToSession(sessionID, map[string]string{"type": "new_message"})

	if msgs := drain(healthy); len(msgs) != 1 {
		t.Errorf("healthy client received %d messages, want 1", len(msgs))
	}
}
