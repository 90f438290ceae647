// cache/cache.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/wfunc/arise/models"
)

const (
	leaderboardKey        = "arise:leaderboard"
	defaultLeaderboardTTL = 30 * time.Second
)

// Valkey 基于 valkey 的排行榜缓存
type Valkey struct {
	client valkey.Client
	ttl    time.Duration
}

// NewValkey 连接 valkey。ttl 为 0 时使用默认值
func NewValkey(addr, password string, ttl time.Duration) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return NewValkeyWithClient(client, ttl), nil
}

func NewValkeyWithClient(client valkey.Client, ttl time.Duration) *Valkey {
	if ttl <= 0 {
		ttl = defaultLeaderboardTTL
	}
	return &Valkey{client: client, ttl: ttl}
}

// GetLeaderboard 读取缓存，未命中时返回 false
func (v *Valkey) GetLeaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool, error) {
	cmd := v.client.B().Get().Key(leaderboardKey).Build()
	raw, err := v.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get leaderboard: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false, fmt.Errorf("unmarshal leaderboard: %w", err)
	}
	return entries, true, nil
}

func (v *Valkey) SetLeaderboard(ctx context.Context, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	cmd := v.client.B().Set().Key(leaderboardKey).Value(string(data)).Ex(v.ttl).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set leaderboard: %w", err)
	}
	return nil
}

func (v *Valkey) InvalidateLeaderboard(ctx context.Context) error {
	cmd := v.client.B().Del().Key(leaderboardKey).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("invalidate leaderboard: %w", err)
	}
	return nil
}

// Ping 检查连接
func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *Valkey) Close() {
	v.client.Close()
}
