package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"latex_format_fixer/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ResponseCacheService 按提示词缓存模型的原始响应。
// 整库重跑时同一道题的提示词不变，命中缓存即可跳过一次模型调用；
// 缓存读写出错只记日志，绝不影响单条记录的修复结果。
type ResponseCacheService struct {
	Redis *redis.Client
	ttl   time.Duration
}

func NewResponseCacheService(rdb *redis.Client, ttl time.Duration) *ResponseCacheService {
	return &ResponseCacheService{
		Redis: rdb,
		ttl:   ttl,
	}
}

// cacheKey 用完整消息体的 SHA-256 做键，提示词变了自然就不命中
func cacheKey(messages []AIChatMessage) string {
	payload, _ := json.Marshal(messages)
	sum := sha256.Sum256(payload)
	return "latexfix:resp:" + hex.EncodeToString(sum[:])
}

func (s *ResponseCacheService) Get(ctx context.Context, messages []AIChatMessage) (string, bool) {
	if s == nil || s.Redis == nil {
		return "", false
	}
	val, err := s.Redis.Get(ctx, cacheKey(messages)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Log.Warn("读取响应缓存失败", zap.Error(err))
		return "", false
	}
	return val, true
}

func (s *ResponseCacheService) Set(ctx context.Context, messages []AIChatMessage, response string) {
	if s == nil || s.Redis == nil {
		return
	}
	if err := s.Redis.Set(ctx, cacheKey(messages), response, s.ttl).Err(); err != nil {
		logger.Log.Warn("写入响应缓存失败", zap.Error(err))
	}
}
