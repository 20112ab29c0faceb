package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/logger"
	"github.com/allanpk716/docx_filler/internal/output"
)

// Session 批处理会话。同一会话同时只允许一个批处理运行，并缓存最近一次完成的结果
type Session struct {
	ID string

	runner  *Runner
	cache   *BatchCache
	logger  logger.Logger
	running atomic.Bool

	mu    sync.Mutex
	state State
}

// NewSession 创建会话，cache 为 nil 时使用默认有效期的缓存
func NewSession(runner *Runner, cache *BatchCache, log logger.Logger) *Session {
	if cache == nil {
		cache = NewBatchCache(DefaultCacheTTL)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		ID:     uuid.NewString(),
		runner: runner,
		cache:  cache,
		logger: log,
		state:  Idle,
	}
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Invalidate 丢弃缓存的结果
func (s *Session) Invalidate() {
	s.cache.Invalidate()
}

// Run 执行批处理。已有批处理运行时立即返回 ErrBusy；
// 规则为空、数据为空、行区间非法或命名表达式无效时在处理任何行之前返回错误。
// 单行失败不会返回错误，而是体现在结果中。
func (s *Session) Run(ctx context.Context, job *Job) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrBusy
	}
	defer s.running.Store(false)

	start, end, err := job.Range()
	if err != nil {
		return nil, err
	}

	namer, err := output.NewNamer(job.Naming, job.Columns)
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(job, start, end)
	if cached, ok := s.cache.Get(fingerprint); ok {
		s.logger.Info(module, "命中缓存，跳过重新处理", map[string]interface{}{
			"session":     s.ID,
			"fingerprint": key(fingerprint),
		})
		cached.FromCache = true
		s.setState(cached.State)
		return cached, nil
	}

	s.setState(Running)
	result := s.runner.Run(ctx, job, start, end, namer)
	result.Fingerprint = fingerprint
	s.setState(result.State)

	if result.Skipped == 0 {
		s.cache.Set(fingerprint, result)
	}

	s.logger.Info(module, "批处理完成", map[string]interface{}{
		"session": s.ID,
		"rows":    result.Total,
		"failed":  result.Failed,
		"skipped": result.Skipped,
		"cached":  false,
		"state":   result.State.String(),
	})
	return result, nil
}
