package broadcast

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/wfunc/whosaidit/network"
	"github.com/wfunc/whosaidit/session"
)

type sentFrame struct {
	event string
	data  string
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []sentFrame
	err  error
}

func (m *MockConnection) Send(event string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentFrame{event: event, data: string(data)})
	return nil
}
func (m *MockConnection) Close() error                             { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                     { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)      {}
func (m *MockConnection) ReadEnvelope() (*network.Envelope, error) { return nil, nil }

func addSession(m *session.Manager, id, roomID string, conn *MockConnection) {
	m.Add(session.NewSession(id, conn))
	if roomID != "" {
		m.Register(id, "name-"+id, roomID)
	}
}

func TestPublishToRoom(t *testing.T) {
	sessions := session.NewManager()
	inRoom, other, broken := &MockConnection{}, &MockConnection{}, &MockConnection{err: errors.New("gone")}
	addSession(sessions, "a", "r1", inRoom)
	addSession(sessions, "b", "r2", other)
	addSession(sessions, "c", "r1", broken)

	b := NewRoomBroadcaster(sessions)
	err := b.PublishToRoom("r1", network.EventNotice, network.MessagePayload{Message: "hi"})
	if err != nil {
		t.Fatalf("A failing recipient should not fail the broadcast: %v", err)
	}

	if len(inRoom.sent) != 1 {
		t.Fatalf("Expected 1 frame for the room member, got %d", len(inRoom.sent))
	}
	if inRoom.sent[0].event != network.EventNotice || inRoom.sent[0].data != `{"message":"hi"}` {
		t.Fatalf("Unexpected frame %+v", inRoom.sent[0])
	}
	if len(other.sent) != 0 {
		t.Fatal("Players in other rooms should not receive the event")
	}
}

func TestPublishTo(t *testing.T) {
	sessions := session.NewManager()
	conn := &MockConnection{}
	addSession(sessions, "a", "", conn)

	b := NewRoomBroadcaster(sessions)
	if err := b.PublishTo("a", network.EventBecameHost, struct{}{}); err != nil {
		t.Fatalf("PublishTo failed: %v", err)
	}
	if len(conn.sent) != 1 || conn.sent[0].data != "{}" {
		t.Fatalf("Unexpected frames %+v", conn.sent)
	}
	if err := b.PublishTo("missing", network.EventBecameHost, nil); err != ErrRecipientNotFound {
		t.Fatalf("Expected ErrRecipientNotFound, got %v", err)
	}
}

func TestPublishToAll(t *testing.T) {
	sessions := session.NewManager()
	joined, idle := &MockConnection{}, &MockConnection{}
	addSession(sessions, "a", "r1", joined)
	addSession(sessions, "b", "", idle)

	b := NewRoomBroadcaster(sessions)
	if err := b.PublishToAll(network.EventNotice, network.MessagePayload{Message: "shutting down"}); err != nil {
		t.Fatalf("PublishToAll failed: %v", err)
	}
	if len(joined.sent) != 1 || len(idle.sent) != 1 {
		t.Fatal("Every connection should receive the event")
	}
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	b := NewRoomBroadcaster(session.NewManager())
	if err := b.PublishToRoom("r1", network.EventNotice, make(chan int)); err == nil {
		t.Fatal("Expected an encoding error")
	}
}
