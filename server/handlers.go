package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addXPRequest struct {
	Amount int `json:"amount"`
}

type allocateStatRequest struct {
	Stat   string `json:"stat"`
	Amount int    `json:"amount"`
}

type progressRequest struct {
	Progress int `json:"progress"`
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err))
		return false
	}
	return true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abortWithError(c, fmt.Errorf("%w: invalid id %q", apperr.ErrInvalidArgument, c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

// queryInt 缺省时返回 def
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: invalid %s %q", apperr.ErrInvalidArgument, key, raw))
		return 0, false
	}
	return v, true
}

// respond 有错误时按分类返回，否则返回 data
func respond(c *gin.Context, data any, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *GameServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "online": s.sessionManager.OnlineCount()})
}

// --- auth ---

func (s *GameServer) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *GameServer) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	respond(c, res, err)
}

func (s *GameServer) verify(c *gin.Context) {
	profile, err := s.svc.Player.GetProfile(c.Request.Context(), currentPlayer(c))
	respond(c, gin.H{"valid": true, "player": profile}, err)
}

// --- player ---

func (s *GameServer) profile(c *gin.Context) {
	profile, err := s.svc.Player.GetProfile(c.Request.Context(), currentPlayer(c))
	respond(c, profile, err)
}

func (s *GameServer) leaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.LeaderboardSize)
	if !ok {
		return
	}
	entries, err := s.svc.Player.Leaderboard(c.Request.Context(), limit)
	respond(c, entries, err)
}

func (s *GameServer) addXP(c *gin.Context) {
	var req addXPRequest
	if !bind(c, &req) {
		return
	}
	out, err := s.svc.Player.GrantXP(c.Request.Context(), currentPlayer(c), req.Amount)
	respond(c, out, err)
}

func (s *GameServer) allocateStat(c *gin.Context) {
	var req allocateStatRequest
	if !bind(c, &req) {
		return
	}
	stats, err := s.svc.Player.AllocateStat(c.Request.Context(), currentPlayer(c), req.Stat, req.Amount)
	respond(c, stats, err)
}

// --- quests ---

func (s *GameServer) activeQuests(c *gin.Context) {
	quests, err := s.svc.Quest.ActiveQuests(c.Request.Context(), currentPlayer(c))
	respond(c, quests, err)
}

func (s *GameServer) questTemplates(c *gin.Context) {
	templates, err := s.svc.Quest.Templates(c.Request.Context(), c.Param("type"))
	respond(c, templates, err)
}

func (s *GameServer) completedQuests(c *gin.Context) {
	days, ok := queryInt(c, "days", 7)
	if !ok {
		return
	}
	quests, err := s.svc.Quest.CompletedQuests(c.Request.Context(), currentPlayer(c), days)
	respond(c, quests, err)
}

func (s *GameServer) updateQuestProgress(c *gin.Context) {
	questID, ok := pathID(c)
	if !ok {
		return
	}
	var req progressRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.svc.Quest.UpdateProgress(c.Request.Context(), currentPlayer(c), questID, req.Progress)
	respond(c, res, err)
}

func (s *GameServer) refreshDaily(c *gin.Context) {
	n, err := s.svc.Quest.RefreshDaily(c.Request.Context(), currentPlayer(c))
	respond(c, gin.H{"assigned": n}, err)
}

// --- dungeons ---

func (s *GameServer) listDungeons(c *gin.Context) {
	dungeons, err := s.svc.Dungeon.List(c.Request.Context(), currentPlayer(c))
	respond(c, dungeons, err)
}

func (s *GameServer) activeDungeon(c *gin.Context) {
	run, err := s.svc.Dungeon.Active(c.Request.Context(), currentPlayer(c))
	respond(c, gin.H{"active": run}, err)
}

func (s *GameServer) startDungeon(c *gin.Context) {
	dungeonID, ok := pathID(c)
	if !ok {
		return
	}
	res, err := s.svc.Dungeon.Start(c.Request.Context(), currentPlayer(c), dungeonID)
	respond(c, res, err)
}

// completeDungeon 路径中的 id 是挑战记录的 id
func (s *GameServer) completeDungeon(c *gin.Context) {
	progressID, ok := pathID(c)
	if !ok {
		return
	}
	res, err := s.svc.Dungeon.Complete(c.Request.Context(), currentPlayer(c), progressID)
	respond(c, res, err)
}

// --- inventory ---

func (s *GameServer) inventory(c *gin.Context) {
	entries, err := s.svc.Inventory.List(c.Request.Context(), currentPlayer(c))
	respond(c, entries, err)
}

func (s *GameServer) useItem(c *gin.Context) {
	entryID, ok := pathID(c)
	if !ok {
		return
	}
	res, err := s.svc.Inventory.Use(c.Request.Context(), currentPlayer(c), entryID)
	respond(c, res, err)
}

// --- achievements ---

func (s *GameServer) achievements(c *gin.Context) {
	views, err := s.svc.Achievement.List(c.Request.Context(), currentPlayer(c))
	respond(c, views, err)
}

func (s *GameServer) checkAchievements(c *gin.Context) {
	unlocked, err := s.svc.Achievement.Check(c.Request.Context(), currentPlayer(c))
	respond(c, gin.H{"unlocked": unlocked}, err)
}

// --- statistics ---

func (s *GameServer) activityStats(c *gin.Context) {
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}
	stats, err := s.svc.Statistics.Activity(c.Request.Context(), currentPlayer(c), days)
	respond(c, stats, err)
}

func (s *GameServer) questStats(c *gin.Context) {
	stats, err := s.svc.Statistics.QuestStats(c.Request.Context(), currentPlayer(c))
	respond(c, stats, err)
}

func (s *GameServer) calendar(c *gin.Context) {
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return
	}
	month, ok := queryInt(c, "month", 0)
	if !ok {
		return
	}
	days, err := s.svc.Statistics.Calendar(c.Request.Context(), currentPlayer(c), year, month)
	respond(c, days, err)
}

func (s *GameServer) summary(c *gin.Context) {
	sum, err := s.svc.Statistics.Summary(c.Request.Context(), currentPlayer(c))
	respond(c, sum, err)
}
