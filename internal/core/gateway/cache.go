package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"diet-chat/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// Cache 食材清單快取（Redis）。只快取食譜名稱→食材這類唯讀資料，
// 對話狀態一律不落地
type Cache struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewCache 創建快取服務
func NewCache(cfg *config.CacheConfig) (*Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client: client,
		config: cfg,
	}, nil
}

// GetIngredients 獲取快取的食材清單
func (s *Cache) GetIngredients(ctx context.Context, recipeName string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("cache is disabled")
	}

	data, err := s.client.Get(ctx, s.key(recipeName)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("cache miss")
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var ingredients []string
	if err := json.Unmarshal(data, &ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	return ingredients, nil
}

// SetIngredients 快取食材清單
func (s *Cache) SetIngredients(ctx context.Context, recipeName string, ingredients []string) error {
	if s == nil || s.client == nil {
		return nil
	}

	data, err := json.Marshal(ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	if err := s.client.Set(ctx, s.key(recipeName), data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// Ping 檢查 Redis 連線
func (s *Cache) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("cache is disabled")
	}
	return s.client.Ping(ctx).Err()
}

// Close 關閉快取連線
func (s *Cache) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// key 生成快取鍵
func (s *Cache) key(recipeName string) string {
	return fmt.Sprintf("diet-chat:ingredients:%s", recipeName)
}
