package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/arise/broadcast"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/monitor"
	"github.com/wfunc/arise/services"
	"github.com/wfunc/arise/session"
)

const defaultHeartbeat = 30 * time.Second

// Options 服务器依赖。Sessions 和 Broadcaster 由调用方创建，与 services 共用
type Options struct {
	Addr        string
	CORSOrigins []string
	Heartbeat   time.Duration
	Services    *services.Services
	Sessions    *session.Manager
	Broadcaster broadcast.Broadcaster
	Monitor     *monitor.Monitor
}

type GameServer struct {
	httpServer     *http.Server
	router         *gin.Engine
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	svc            *services.Services
	monitor        *monitor.Monitor
	heartbeat      time.Duration
}

func NewGameServer(opts Options) *GameServer {
	if opts.Sessions == nil {
		opts.Sessions = session.NewManager()
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = broadcast.NewSessionBroadcaster(opts.Sessions)
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.NewMonitor("arise")
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}

	s := &GameServer{
		sessionManager: opts.Sessions,
		broadcaster:    opts.Broadcaster,
		svc:            opts.Services,
		monitor:        opts.Monitor,
		heartbeat:      opts.Heartbeat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求，连接本身需要令牌
			},
		},
	}
	s.router = s.newRouter(opts.CORSOrigins)
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *GameServer) newRouter(origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), s.observe())

	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	router.GET("/ws", s.handleWebSocket)

	api := router.Group("/api")
	api.GET("/health", s.health)
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.requireAuth())
	authed.GET("/auth/verify", s.verify)

	authed.GET("/player/profile", s.profile)
	authed.GET("/player/leaderboard", s.leaderboard)
	authed.POST("/player/add-xp", s.addXP)
	authed.PUT("/player/stats", s.allocateStat)

	authed.GET("/quests", s.activeQuests)
	authed.GET("/quests/templates/:type", s.questTemplates)
	authed.GET("/quests/completed", s.completedQuests)
	authed.PUT("/quests/:id/progress", s.updateQuestProgress)
	authed.POST("/quests/refresh-daily", s.refreshDaily)

	authed.GET("/dungeons", s.listDungeons)
	authed.GET("/dungeons/active", s.activeDungeon)
	authed.POST("/dungeons/:id/start", s.startDungeon)
	authed.POST("/dungeons/:id/complete", s.completeDungeon)

	authed.GET("/inventory", s.inventory)
	authed.POST("/inventory/:id/use", s.useItem)

	authed.GET("/achievements", s.achievements)
	authed.POST("/achievements/check", s.checkAchievements)

	authed.GET("/statistics/activity", s.activityStats)
	authed.GET("/statistics/quests", s.questStats)
	authed.GET("/statistics/calendar", s.calendar)
	authed.GET("/statistics/summary", s.summary)

	return router
}

// Handler 供测试直接使用
func (s *GameServer) Handler() http.Handler {
	return s.router
}

// Start 阻塞直到服务器关闭
func (s *GameServer) Start() error {
	logger.Log.Infof("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 关闭所有 websocket 会话并停止 HTTP 服务
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.sessionManager.CloseAll()
	return s.httpServer.Shutdown(ctx)
}
