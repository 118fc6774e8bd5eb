package group

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jbenet/goprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

const testSwarm = types.SwarmID("test-swarm")

// newTestManager 创建并启动一个测试管理器
func newTestManager(t *testing.T, cfg Config) (*Manager, *Table) {
	t.Helper()

	table := NewTable()
	m, err := NewManager(testSwarm, table, cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	return m, table
}

// testConfig 返回等待上界很短的测试配置
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StopTimeout = 100 * time.Millisecond
	return cfg
}

// wellBehavedStart 返回行为良好的分组启动函数
//
// worker 树：top 下挂一个 primary，关闭请求立即生效。
func wellBehavedStart(counter *int32) interfaces.GroupStartFunc {
	return func(parent goprocess.Process, id types.GroupID, args []any) (goprocess.Process, goprocess.Process, error) {
		if counter != nil {
			atomic.AddInt32(counter, 1)
		}
		top := goprocess.WithParent(parent)
		primary := goprocess.WithParent(top)
		return top, primary, nil
	}
}

// stuckStart 返回主工作进程卡死的分组启动函数
//
// primary 在 release 关闭前不响应关闭请求。
func stuckStart(release chan struct{}) interfaces.GroupStartFunc {
	return func(parent goprocess.Process, id types.GroupID, args []any) (goprocess.Process, goprocess.Process, error) {
		top := goprocess.WithParent(parent)
		primary := goprocess.Go(func(p goprocess.Process) { <-release })
		return top, primary, nil
	}
}

// TestManager_AddGroup 测试分组启动
func TestManager_AddGroup(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	h, err := m.AddGroup("room-1", wellBehavedStart(nil), nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, types.GroupID("room-1"), h.ID())

	// 注册表可见
	got, ok := table.Lookup(testSwarm, "room-1")
	require.True(t, ok)
	assert.Equal(t, h, got)

	t.Log("✅ 分组启动并登记成功")
}

// TestManager_AddGroupIdempotent 测试重复添加的幂等性
func TestManager_AddGroupIdempotent(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	var starts int32
	start := wellBehavedStart(&starts)

	h1, err := m.AddGroup("room-1", start, nil)
	require.NoError(t, err)

	h2, err := m.AddGroup("room-1", start, nil)
	require.NoError(t, err)

	// 返回现有句柄，启动函数只被调用一次
	assert.Equal(t, h1, h2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&starts))

	t.Log("✅ 重复添加返回现有句柄且不重复启动")
}

// TestManager_AddGroupInvalidID 测试非法分组 ID
func TestManager_AddGroupInvalidID(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	for _, id := range []types.GroupID{"", "a/b", "a\\b"} {
		_, err := m.AddGroup(id, wellBehavedStart(nil), nil)
		assert.ErrorIs(t, err, ErrInvalidGroupID, "id=%q", id)
	}

	t.Log("✅ 非法分组 ID 被拒绝")
}

// TestManager_AddGroupStartFailure 测试启动失败不改变状态
func TestManager_AddGroupStartFailure(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	boom := errors.New("boom")
	_, err := m.AddGroup("room-1", func(parent goprocess.Process, id types.GroupID, args []any) (goprocess.Process, goprocess.Process, error) {
		return nil, nil, boom
	}, nil)

	assert.ErrorIs(t, err, ErrStartFailure)

	// 注册表未被污染，同 ID 之后仍可正常启动
	_, ok := table.Lookup(testSwarm, "room-1")
	assert.False(t, ok)

	_, err = m.AddGroup("room-1", wellBehavedStart(nil), nil)
	assert.NoError(t, err)

	t.Log("✅ 启动失败原样上报且状态未变")
}

// TestManager_RemoveGroup 测试分组移除
func TestManager_RemoveGroup(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	h, err := m.AddGroup("room-1", wellBehavedStart(nil), nil)
	require.NoError(t, err)

	require.NoError(t, m.RemoveGroup("room-1"))

	// 注册条目已删除
	_, ok := table.Lookup(testSwarm, "room-1")
	assert.False(t, ok)

	// worker 树最终被关闭
	select {
	case <-h.Top().Closed():
	case <-time.After(time.Second):
		t.Fatal("顶层进程未关闭")
	}

	t.Log("✅ 分组移除并拆除 worker 树")
}

// TestManager_RemoveGroupUnknown 测试移除未注册分组
func TestManager_RemoveGroupUnknown(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	// 空操作，且成功返回
	assert.NoError(t, m.RemoveGroup("missing"))

	t.Log("✅ 移除未注册分组是成功的空操作")
}

// TestManager_RemoveGroupStuckWorker 测试卡死 worker 不阻塞移除
//
// 主工作进程不响应关闭请求时，RemoveGroup 等待 StopTimeout
// 后无条件继续，注册状态照常清理。
func TestManager_RemoveGroupStuckWorker(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	release := make(chan struct{})
	defer close(release)

	_, err := m.AddGroup("stuck", stuckStart(release), nil)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, m.RemoveGroup("stuck"))

	// 等待了上界但没有死锁
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	_, ok := table.Lookup(testSwarm, "stuck")
	assert.False(t, ok)

	t.Log("✅ 卡死 worker 不阻塞移除")
}

// TestManager_UnexpectedDeath 测试主工作进程意外死亡后的清理
func TestManager_UnexpectedDeath(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	h, err := m.AddGroup("room-1", wellBehavedStart(nil), nil)
	require.NoError(t, err)

	// 模拟 worker 崩溃：直接关闭主工作进程
	require.NoError(t, h.Primary().Close())

	// 死亡通知触发注册状态清理
	require.Eventually(t, func() bool {
		_, ok := table.Lookup(testSwarm, "room-1")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// 清理后同 ID 可重新启动
	_, err = m.AddGroup("room-1", wellBehavedStart(nil), nil)
	assert.NoError(t, err)

	t.Log("✅ 意外死亡触发清理且分组可重建")
}

// TestManager_StaleDeathAfterReAdd 测试同 ID 重建后过期死亡通知被丢弃
//
// 移除分组时旧主工作进程的死亡通知可能滞后到达；
// 此时同 ID 的新分组可能已经启动，过期通知必须按句柄
// 区分新旧两代，绝不能拆除新分组。
func TestManager_StaleDeathAfterReAdd(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	for i := 0; i < 5; i++ {
		h1, err := m.AddGroup("grp", wellBehavedStart(nil), nil)
		require.NoError(t, err)

		// 移除会关闭旧 primary，其死亡通知进入待处理队列
		require.NoError(t, m.RemoveGroup("grp"))

		// 同 ID 立即重建
		h2, err := m.AddGroup("grp", wellBehavedStart(nil), nil)
		require.NoError(t, err)
		require.NotEqual(t, h1, h2)

		// 让执行循环消化掉滞后的通知
		require.NoError(t, m.ForceGC())
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, m.ForceGC())

		// 新分组必须完好：注册条目还在且指向新句柄
		got, ok := table.Lookup(testSwarm, "grp")
		require.True(t, ok, "迭代 %d: 新分组被过期通知拆除", i)
		assert.Equal(t, h2, got)

		// 新 worker 树未被关闭
		select {
		case <-h2.Top().Closed():
			t.Fatalf("迭代 %d: 新分组的 worker 树被关闭", i)
		default:
		}

		require.NoError(t, m.RemoveGroup("grp"))
	}

	t.Log("✅ 过期死亡通知不影响重建后的分组")
}

// TestManager_StopAll 测试全部停止
func TestManager_StopAll(t *testing.T) {
	m, table := newTestManager(t, testConfig())

	var handles []interfaces.GroupHandle
	for _, id := range []types.GroupID{"a", "b", "c"} {
		h, err := m.AddGroup(id, wellBehavedStart(nil), nil)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	m.StopAll()

	// 全部注册条目已删除
	assert.Empty(t, table.All(testSwarm))

	// 所有 worker 树最终被关闭
	for _, h := range handles {
		select {
		case <-h.Top().Closed():
		case <-time.After(time.Second):
			t.Fatalf("分组 %s 的顶层进程未关闭", h.ID())
		}
	}

	t.Log("✅ 全部分组已停止并清理")
}

// TestManager_ClosedManager 测试管理器关闭后的操作
func TestManager_ClosedManager(t *testing.T) {
	table := NewTable()
	m, err := NewManager(testSwarm, table, testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	_, err = m.AddGroup("room-1", wellBehavedStart(nil), nil)
	assert.ErrorIs(t, err, ErrManagerClosed)

	assert.ErrorIs(t, m.RemoveGroup("room-1"), ErrManagerClosed)

	t.Log("✅ 关闭后的操作返回 ErrManagerClosed")
}

// TestManager_NotStarted 测试未启动的管理器
func TestManager_NotStarted(t *testing.T) {
	m, err := NewManager(testSwarm, NewTable(), testConfig())
	require.NoError(t, err)

	_, err = m.AddGroup("room-1", wellBehavedStart(nil), nil)
	assert.ErrorIs(t, err, ErrManagerClosed)

	// 未启动时 Stop 是空操作
	assert.NoError(t, m.Stop(context.Background()))

	t.Log("✅ 未启动的管理器拒绝操作")
}

// TestManager_InvalidConfig 测试非法配置
func TestManager_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopTimeout = 0

	_, err := NewManager(testSwarm, NewTable(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Log("✅ 非法配置被拒绝")
}

// TestManager_SerializedOps 测试操作串行化
//
// 并发的 AddGroup 不会重复启动同一分组。
func TestManager_SerializedOps(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	var starts int32
	start := wellBehavedStart(&starts)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = m.AddGroup("room-1", start, nil)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&starts))

	t.Log("✅ 并发添加只启动一次")
}
