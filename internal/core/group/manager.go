package group

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jbenet/goprocess"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/lib/log"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

var logger = log.Logger("core/group")

// record 管理器内部的分组记录
//
// 每个存活分组最多一条记录。死亡通知携带完整句柄：
// 同一分组 ID 可能在移除后被重建，仅凭 ID 无法区分
// 新旧两代 worker 树，必须比对句柄本身。
type record struct {
	handle *Handle
}

// ============================================================================
//                              Manager 实现
// ============================================================================

// Manager 分组生命周期管理器
//
// 每个网络实例一个单例。AddGroup / RemoveGroup / StopAll /
// 死亡通知 / 垃圾回收 tick 全部在同一个执行循环中串行处理，
// 调用方阻塞到操作完成为止——这也是防止同一分组
// 被并发重复启动的机制。
type Manager struct {
	cfg      Config
	swarm    types.SwarmID
	registry interfaces.GroupRegistry
	clock    clock.Clock
	metrics  *Metrics

	mu    sync.RWMutex
	proc  goprocess.Process // 执行循环进程
	trees goprocess.Process // 所有 worker 树的监督父进程

	ops     chan func()
	deaths  chan *Handle
	records map[types.GroupID]*record // 仅循环内访问
}

// NewManager 创建分组管理器
func NewManager(swarm types.SwarmID, registry interfaces.GroupRegistry, cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Manager{
		cfg:      cfg,
		swarm:    swarm,
		registry: registry,
		clock:    clock.New(),
		ops:      make(chan func()),
		deaths:   make(chan *Handle, 64),
		records:  make(map[types.GroupID]*record),
	}, nil
}

// SetClock 替换时钟源（用于测试）
//
// 必须在 Start 之前调用。
func (m *Manager) SetClock(c clock.Clock) {
	m.clock = c
}

// SetMetrics 设置指标收集器（可选）
func (m *Manager) SetMetrics(mt *Metrics) {
	m.metrics = mt
}

// Swarm 返回管理器所属的网络实例
func (m *Manager) Swarm() types.SwarmID {
	return m.swarm
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动管理器执行循环
func (m *Manager) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc != nil {
		return nil
	}

	m.trees = goprocess.WithParent(goprocess.Background())
	m.proc = goprocess.Go(m.run)

	logger.Info("分组管理器已启动",
		"swarm", m.swarm,
		"storageDir", m.cfg.StorageDir)
	return nil
}

// Stop 停止管理器
//
// 先对所有分组做尽力而为的优雅停止，再关闭执行循环，
// 最后异步关闭 worker 树的监督父进程（容忍卡死的 worker）。
func (m *Manager) Stop(_ context.Context) error {
	m.mu.RLock()
	proc, trees := m.proc, m.trees
	m.mu.RUnlock()

	if proc == nil {
		return nil
	}

	m.StopAll()

	err := proc.Close()
	go func() { _ = trees.Close() }()

	logger.Info("分组管理器已停止", "swarm", m.swarm)
	return err
}

// run 执行循环：操作、死亡通知与 GC tick 的唯一消费者
func (m *Manager) run(proc goprocess.Process) {
	startup := m.clock.Timer(m.cfg.GCStartupDelay)
	defer startup.Stop()

	var ticker *clock.Ticker
	var tickC <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case op := <-m.ops:
			op()
		case h := <-m.deaths:
			m.handleDeath(h)
		case <-startup.C:
			// 首轮 GC 在启动延迟之后，此后按固定周期执行
			_ = m.gcTick()
			ticker = m.clock.Ticker(m.cfg.GCInterval)
			tickC = ticker.C
		case <-tickC:
			_ = m.gcTick()
		case <-proc.Closing():
			return
		}
	}
}

// do 在执行循环中串行执行 fn，阻塞直到完成
func (m *Manager) do(fn func()) error {
	m.mu.RLock()
	proc := m.proc
	m.mu.RUnlock()

	if proc == nil {
		return ErrManagerClosed
	}

	done := make(chan struct{})
	select {
	case m.ops <- func() { fn(); close(done) }:
	case <-proc.Closing():
		return ErrManagerClosed
	}

	select {
	case <-done:
		return nil
	case <-proc.Closing():
		return ErrManagerClosed
	}
}

// ============================================================================
//                              公开操作
// ============================================================================

// AddGroup 启动（或返回已存在的）分组
//
// 幂等：同一分组 ID 再次调用返回现有句柄，不会重复启动。
// 启动失败原样向调用方传播，不改变任何状态。
func (m *Manager) AddGroup(id types.GroupID, start interfaces.GroupStartFunc, args []any) (interfaces.GroupHandle, error) {
	var h interfaces.GroupHandle
	var err error

	if derr := m.do(func() { h, err = m.addGroup(id, start, args) }); derr != nil {
		return nil, derr
	}
	return h, err
}

// RemoveGroup 停止并注销分组
//
// 未注册的分组按成功的空操作处理。优雅停止的等待有上界，
// 无论主工作进程是否配合，本操作都不会死锁。
func (m *Manager) RemoveGroup(id types.GroupID) error {
	return m.do(func() { m.removeGroup(id) })
}

// StopAll 停止全部分组
//
// 对每个分组请求优雅停止并立即移除注册条目，
// 然后只等待其中最后一个分组的主工作进程死亡作为代表性同步点。
// 这是一个尽力而为的上界，不保证所有分组都已完成停止。
func (m *Manager) StopAll() {
	_ = m.do(func() { m.stopAll() })
}

// ForceGC 同步执行一轮垃圾回收（与周期 tick 同一例程）
func (m *Manager) ForceGC() error {
	var err error
	if derr := m.do(func() { err = m.gcTick() }); derr != nil {
		return derr
	}
	return err
}

// ============================================================================
//                              循环内实现
// ============================================================================

// addGroup 启动分组（循环内）
func (m *Manager) addGroup(id types.GroupID, start interfaces.GroupStartFunc, args []any) (interfaces.GroupHandle, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupID, id)
	}

	// 幂等：已注册直接返回现有句柄
	if h, ok := m.registry.Lookup(m.swarm, id); ok {
		return h, nil
	}

	top, primary, err := start(m.trees, id, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartFailure, err)
	}

	h := NewHandle(id, top, primary)
	m.registry.Insert(m.swarm, id, h)
	m.records[id] = &record{handle: h}
	m.subscribeDeath(h)
	m.metrics.SetActive(len(m.records))

	logger.Info("分组已启动", "swarm", m.swarm, "group", id)
	return h, nil
}

// subscribeDeath 订阅主工作进程的死亡通知
//
// 通知携带句柄本身送入 deaths 通道，由执行循环消费；
// 分组已被移除（甚至同 ID 重建）时，迟到的通知
// 在 handleDeath 里因句柄不匹配被丢弃。
func (m *Manager) subscribeDeath(h *Handle) {
	proc := m.proc
	go func() {
		select {
		case <-h.primary.Closed():
			select {
			case m.deaths <- h:
			case <-proc.Closing():
			}
		case <-proc.Closing():
		}
	}()
}

// removeGroup 停止并注销分组（循环内）
func (m *Manager) removeGroup(id types.GroupID) {
	rec, ok := m.records[id]
	if !ok {
		logger.Debug("移除未注册分组，空操作", "swarm", m.swarm, "group", id)
		return
	}

	// 请求优雅停止；Close 可能因 worker 卡死而阻塞，必须异步
	go func() { _ = rec.handle.primary.Close() }()
	m.waitClosed(rec.handle.primary, id)

	m.teardown(id, rec)
	logger.Info("分组已移除", "swarm", m.swarm, "group", id)
}

// stopAll 停止全部分组（循环内）
func (m *Manager) stopAll() {
	var last *Handle
	for id, rec := range m.records {
		h := rec.handle
		go func() { _ = h.primary.Close() }()
		m.registry.Remove(m.swarm, id)
		delete(m.records, id)
		last = h
	}

	if last == nil {
		return
	}

	// 代表性同步点：只等最后一个分组的主工作进程
	m.waitClosed(last.primary, last.id)
	m.metrics.SetActive(0)

	logger.Info("全部分组已停止", "swarm", m.swarm)
}

// handleDeath 处理主工作进程的意外死亡（循环内）
//
// 已注册的分组执行与 RemoveGroup 相同的强制拆除尾部
// （无需再请求优雅停止，进程已经死了）；
// 未知、已移除或已被同 ID 新分组顶替的通知只记录日志，
// 不改变状态——仅当记录里的句柄就是通知携带的句柄时才拆除。
func (m *Manager) handleDeath(h *Handle) {
	rec, ok := m.records[h.id]
	if !ok {
		logger.Debug("忽略未知分组的死亡通知",
			"swarm", m.swarm,
			"group", h.id,
			"reason", ErrUnknownGroup)
		return
	}
	if rec.handle != h {
		logger.Debug("忽略已被重建分组的过期死亡通知",
			"swarm", m.swarm,
			"group", h.id)
		return
	}

	logger.Warn("分组主工作进程意外死亡，清理注册状态",
		"swarm", m.swarm,
		"group", h.id)
	m.teardown(h.id, rec)
	m.metrics.Death()
}

// teardown 强制拆除 worker 树并清理注册状态（循环内）
//
// RemoveGroup 与死亡通知共用这段尾部逻辑。
// 顶层进程的关闭异步执行，容忍卡死的 worker。
func (m *Manager) teardown(id types.GroupID, rec *record) {
	h := rec.handle
	go func() { _ = h.top.Close() }()

	m.registry.Remove(m.swarm, id)
	delete(m.records, id)
	m.metrics.SetActive(len(m.records))
}

// waitClosed 等待进程关闭，最多等待 StopTimeout
//
// 超时后无条件继续——这是建议性的延迟，不是硬取消屏障。
func (m *Manager) waitClosed(p goprocess.Process, id types.GroupID) {
	t := m.clock.Timer(m.cfg.StopTimeout)
	defer t.Stop()

	select {
	case <-p.Closed():
	case <-t.C:
		logger.Warn("等待主工作进程停止超时，继续强制拆除",
			"swarm", m.swarm,
			"group", id,
			"timeout", m.cfg.StopTimeout)
	}
}
