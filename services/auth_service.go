// services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/models"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/progression"
)

type AuthService struct {
	*core
	quests *QuestService
}

// AuthResult 登录或注册成功后返回的令牌
type AuthResult struct {
	Token  string         `json:"token"`
	Player *models.Player `json:"player"`
}

type claims struct {
	jwt.RegisteredClaims
}

// Register 创建玩家、初始属性和初始每日任务
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", apperr.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	player := &models.Player{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Level:        1,
		RankID:       progression.DefaultRankID,
	}
	err = s.store.Transaction(ctx, func(tx persistence.Store) error {
		if err := tx.CreatePlayer(ctx, player); err != nil {
			if errors.Is(err, persistence.ErrDuplicateRecord) {
				return fmt.Errorf("username or email already exists: %w", apperr.ErrConflict)
			}
			return err
		}
		if err := tx.CreateStats(ctx, models.NewPlayerStats(player.ID)); err != nil {
			return err
		}
		_, err := s.quests.assignDaily(ctx, tx, player.ID, s.cfg.DailyQuestLimit)
		return err
	})
	if err != nil {
		return nil, err
	}

	token, err := s.issue(player.ID)
	if err != nil {
		return nil, err
	}
	logger.Log.Infow("player registered", "player", player.ID, "username", username)
	s.invalidateLeaderboard(ctx)
	return &AuthResult{Token: token, Player: player}, nil
}

// nextStreak 按距上次登录的整天数计算连续登录天数
func nextStreak(current int, lastLogin *time.Time, now time.Time) int {
	if lastLogin == nil {
		return 1
	}
	days := int(now.Sub(*lastLogin) / (24 * time.Hour))
	switch {
	case days == 1:
		return current + 1
	case days > 1:
		return 1
	default:
		return current
	}
}

// Login 校验密码并更新连续登录天数
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	player, err := s.store.FindPlayerByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}

	if player, err = s.recordLogin(ctx, player.ID); err != nil {
		return nil, err
	}

	token, err := s.issue(player.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Player: player}, nil
}

// recordLogin 在玩家锁内重新读取并更新连续登录天数
func (s *AuthService) recordLogin(ctx context.Context, playerID uint) (*models.Player, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var player *models.Player
	err := s.store.Transaction(ctx, func(tx persistence.Store) error {
		var err error
		if player, err = tx.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		now := s.now()
		streak := nextStreak(player.StreakDays, player.LastLogin, now)
		if err := tx.UpdatePlayer(ctx, playerID, map[string]any{
			"last_login":  now,
			"streak_days": streak,
		}); err != nil {
			return err
		}
		player.LastLogin, player.StreakDays = &now, streak
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

func (s *AuthService) issue(playerID uint) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(playerID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Verify 校验令牌并返回玩家 id
func (s *AuthService) Verify(tokenString string) (uint, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid token: %v", apperr.ErrUnauthorized, err)
	}
	id, err := strconv.ParseUint(parsed.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid token subject", apperr.ErrUnauthorized)
	}
	return uint(id), nil
}
