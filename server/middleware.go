package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/arise/apperr"
	"github.com/wfunc/arise/logger"
)

const playerIDKey = "playerID"

// requestLogger 请求日志，4xx 记为 warn，5xx 记为 error
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(startedAt),
			"bytes", c.Writer.Size(),
		}
		if id, ok := c.Get(playerIDKey); ok {
			fields = append(fields, "player", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Log.Errorw("http_request", fields...)
		case status >= http.StatusBadRequest:
			logger.Log.Warnw("http_request", fields...)
		default:
			logger.Log.Debugw("http_request", fields...)
		}
	}
}

func (s *GameServer) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.monitor.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(startedAt))
	}
}

func bearerToken(c *gin.Context) string {
	value := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return ""
}

// requireAuth 校验 Bearer 令牌，把玩家 id 放进上下文
func (s *GameServer) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized))
			return
		}
		playerID, err := s.svc.Auth.Verify(token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(playerIDKey, playerID)
		c.Next()
	}
}

func currentPlayer(c *gin.Context) uint {
	return c.GetUint(playerIDKey)
}

// statusOf 错误分类到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 内部错误只返回通用信息，详细内容写日志
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
