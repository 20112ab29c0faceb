package batch

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL 缓存结果的默认有效期
const DefaultCacheTTL = time.Hour

// BatchCache 会话内的批处理结果缓存，只保留最近一次完成的结果
type BatchCache struct {
	cache *cache.Cache
}

// NewBatchCache 创建缓存，ttl <= 0 时使用 DefaultCacheTTL
func NewBatchCache(ttl time.Duration) *BatchCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &BatchCache{cache: cache.New(ttl, ttl/6)}
}

// Get 按指纹取结果的副本
func (b *BatchCache) Get(fingerprint uint64) (*Result, bool) {
	if x, found := b.cache.Get(key(fingerprint)); found {
		return x.(*Result).clone(), true
	}
	return nil, false
}

// Set 保存结果的副本并丢弃之前的结果
func (b *BatchCache) Set(fingerprint uint64, result *Result) {
	b.cache.Flush()
	b.cache.Set(key(fingerprint), result.clone(), cache.DefaultExpiration)
}

// Invalidate 清空缓存
func (b *BatchCache) Invalidate() {
	b.cache.Flush()
}

func key(fingerprint uint64) string {
	return strconv.FormatUint(fingerprint, 16)
}
