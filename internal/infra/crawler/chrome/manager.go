package chrome

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LouYuanbo1/tirescraper/param"
	"github.com/rs/zerolog"
)

// Manager 负责会话的打开和销毁,保证每个会话在任何退出路径上都会被关闭
type Manager struct {
	driver Driver
	logger zerolog.Logger
	active atomic.Int64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewManager(driver Driver, logger zerolog.Logger) *Manager {
	return &Manager{
		driver: driver,
		logger: logger.With().Str("component", "session_manager").Str("driver", driver.Name()).Logger(),
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// WithRand 固定随机源,测试中得到确定的指纹
func (m *Manager) WithRand(rnd *rand.Rand) *Manager {
	m.rnd = rnd
	return m
}

// Active 当前未关闭的会话数量
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Open 打开一个新会话,调用方负责 Close;优先使用 With
func (m *Manager) Open(ctx context.Context, opts param.Session) (Session, error) {
	m.mu.Lock()
	fp := NewFingerprint(opts, m.rnd)
	m.mu.Unlock()

	sess, err := m.driver.Launch(ctx, opts, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser session: %w", err)
	}
	m.active.Add(1)
	m.logger.Debug().
		Str("user_agent", fp.UserAgent).
		Int("width", fp.Width).
		Int("height", fp.Height).
		Bool("proxy", opts.Proxy != "").
		Msg("session opened")
	return &trackedSession{Session: sess, manager: m}, nil
}

// With 打开会话并执行 fn,正常返回、出错、超时或 panic 时都会关闭会话
func (m *Manager) With(ctx context.Context, opts param.Session, fn func(ctx context.Context, sess Session) error) error {
	if opts.LifeTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.LifeTime)
		defer cancel()
	}

	sess, err := m.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			m.logger.Warn().Err(cerr).Msg("failed to close session")
		}
	}()
	return fn(ctx, sess)
}

type trackedSession struct {
	Session
	manager *Manager
	once    sync.Once
}

func (t *trackedSession) Close() error {
	var err error
	t.once.Do(func() {
		err = t.Session.Close()
		t.manager.active.Add(-1)
		t.manager.logger.Debug().Msg("session closed")
	})
	return err
}
