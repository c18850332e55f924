// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/whosaidit/logger"
	"github.com/wfunc/whosaidit/session"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found")
)

// 广播接口
type Broadcaster interface {
	PublishToRoom(roomID, event string, payload interface{}) error
	PublishTo(playerID, event string, payload interface{}) error
	PublishToAll(event string, payload interface{}) error
}

// 基于房间的广播器
// Recipients are resolved from the session registry rather than the room, so
// publishing never takes a room lock.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) PublishToRoom(roomID, event string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}

	for _, s := range b.sessionManager.InRoom(roomID) {
		if err := s.Send(event, data); err != nil {
			// 发送失败不影响其他玩家
			logger.Log.Debugf("Room %s: dropping %s for %s: %v", roomID, event, s.ID, err)
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) PublishTo(playerID, event string, payload interface{}) error {
	s, exists := b.sessionManager.Lookup(playerID)
	if !exists {
		return ErrRecipientNotFound
	}
	data, err := encode(payload)
	if err != nil {
		return err
	}
	return s.Send(event, data)
}

// PublishToAll reaches every connection, joined or not.
func (b *RoomBroadcaster) PublishToAll(event string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}

	for _, s := range b.sessionManager.All() {
		if err := s.Send(event, data); err != nil {
			logger.Log.Debugf("Dropping %s for %s: %v", event, s.ID, err)
		}
	}
	return nil
}

func encode(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}
