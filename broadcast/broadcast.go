// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/wfunc/arise/session"
)

// 广播接口，发送即忘，不重试也不补发
type Broadcaster interface {
	BroadcastToAll(event string, payload any) error
	BroadcastToUsers(userIDs []uint, event string, payload any) error
}

// 基于会话注册表的广播器
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) BroadcastToAll(event string, payload any) error {
	return send(b.sessionManager.All(), event, payload)
}

func (b *SessionBroadcaster) BroadcastToUsers(userIDs []uint, event string, payload any) error {
	var errs []error
	for _, userID := range userIDs {
		if err := send(b.sessionManager.GetByUserID(userID), event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// send 单个会话发送失败不影响其他会话，失败的会话由读循环负责清理
func send(sessions []*session.Session, event string, payload any) error {
	var errs []error
	for _, s := range sessions {
		if err := s.Send(event, payload); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}
