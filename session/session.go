// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/arise/network"
)

type Session struct {
	ID         string
	Conn       network.Connection
	UserID     uint
	Data       map[string]any // 自定义数据
	CreatedAt  time.Time
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, userID uint, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		UserID:     userID,
		CreatedAt:  now,
		lastActive: now,
		Data:       make(map[string]any),
	}
}

func (s *Session) Set(key string, value any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Data[key] = value
}

func (s *Session) Get(key string) any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Data[key]
}

func (s *Session) Send(event string, data any) error {
	s.Touch()
	return s.Conn.Send(event, data)
}

// Touch 刷新活跃时间
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器，随服务器启动创建，关闭时 CloseAll
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Remove 返回是否确实移除了会话
func (m *Manager) Remove(sessionID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

func (m *Manager) GetByUserID(userID uint) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	return result
}

// All 当前所有会话的快照
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// OnlineCount 在线玩家数，同一玩家多个连接只算一次
func (m *Manager) OnlineCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := make(map[uint]struct{}, len(m.sessions))
	for _, session := range m.sessions {
		users[session.UserID] = struct{}{}
	}
	return len(users)
}

// CloseAll 关闭并移除所有会话
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mutex.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
