package network

import "errors"

// ErrBadMessage 帧无法解析或缺少 event，连接本身仍然可用
var ErrBadMessage = errors.New("bad message")

// 服务端推送
const (
	EventOnlinePlayers     = "online_players"
	EventPlayerActivity    = "player_activity"
	EventLeaderboardUpdate = "leaderboard_update"
	EventPong              = "pong"
	EventError             = "error"
)

// 客户端请求
const (
	EventPing               = "ping"
	EventRequestLeaderboard = "request_leaderboard"
)
