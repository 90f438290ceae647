package server

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/network"
	"github.com/wfunc/arise/session"
)

// wsLeaderboardSize request_leaderboard 返回的人数
const wsLeaderboardSize = 10

// usernameKey 会话数据里保存玩家名
const usernameKey = "username"

// handleWebSocket 令牌可以放在 token 查询参数或 Authorization 头里
func (s *GameServer) handleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}
	playerID, err := s.svc.Auth.Verify(token)
	if err != nil {
		abortWithError(c, err)
		return
	}
	profile, err := s.svc.Player.GetProfile(c.Request.Context(), playerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn, playerID, profile.Username)
}

func (s *GameServer) handleConnection(conn *websocket.Conn, playerID uint, username string) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.heartbeat)
	sess := session.NewSession(uuid.New().String(), playerID, wsConn)
	sess.Set(usernameKey, username)
	s.sessionManager.Add(sess)
	s.presenceChanged()

	logger.Log.Infof("New connection from %s, player %s (%d), session ID: %s", wsConn.RemoteAddr(), username, playerID, sess.ID)

	defer func() {
		logger.Log.Infow("Connection closed",
			"remote", wsConn.RemoteAddr(),
			"session", sess.ID,
			"player", username,
			"connected", time.Since(sess.CreatedAt).Round(time.Second),
			"idle", time.Since(sess.LastActive()).Round(time.Second),
		)
		wsConn.Close()
		if s.sessionManager.Remove(sess.ID) {
			s.presenceChanged()
		}
	}()

	for {
		msg, err := wsConn.ReadMessage()
		if errors.Is(err, network.ErrBadMessage) {
			sess.Send(network.EventError, map[string]string{"error": err.Error()})
			continue
		}
		if err != nil {
			return
		}
		s.handleMessage(sess, msg)
	}
}

func (s *GameServer) handleMessage(sess *session.Session, msg *network.Message) {
	s.monitor.IncMessagesReceived()
	sess.Touch()
	username, _ := sess.Get(usernameKey).(string)
	logger.Log.Debugw("ws message", "session", sess.ID, "player", username, "event", msg.Event)

	switch msg.Event {
	case network.EventPing:
		sess.Send(network.EventPong, map[string]int64{"time": time.Now().UnixMilli()})
	case network.EventRequestLeaderboard:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entries, err := s.svc.Player.Leaderboard(ctx, wsLeaderboardSize)
		if err != nil {
			logger.Log.Warnw("leaderboard request failed", "session", sess.ID, "player", username, "error", err)
			sess.Send(network.EventError, map[string]string{"error": "leaderboard unavailable"})
			return
		}
		sess.Send(network.EventLeaderboardUpdate, entries)
	default:
		logger.Log.Infof("Unknown event %s from %s", msg.Event, username)
		sess.Send(network.EventError, map[string]string{"error": "unknown event " + msg.Event})
	}
}

// presenceChanged 在线人数变化时更新指标并通知所有人
func (s *GameServer) presenceChanged() {
	count := s.sessionManager.OnlineCount()
	s.monitor.SetOnlinePlayers(count)
	if err := s.broadcaster.BroadcastToAll(network.EventOnlinePlayers, count); err != nil {
		logger.Log.Warnw("broadcast online players failed", "error", err)
	}
}
