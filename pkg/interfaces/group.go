package interfaces

import (
	"github.com/jbenet/goprocess"

	"github.com/dep2p/go-swarmcore/pkg/types"
)

// ============================================================================
//                              分组句柄
// ============================================================================

// GroupHandle 运行中分组的句柄
//
// Top 是 worker 树的顶层进程（树的所有者），
// Primary 是独占该分组持久化存储的主工作进程，
// 死亡监控以 Primary 为对象。
type GroupHandle interface {
	ID() types.GroupID
	Top() goprocess.Process
	Primary() goprocess.Process
}

// GroupEntry 注册表枚举条目
type GroupEntry struct {
	ID     types.GroupID
	Handle GroupHandle
}

// ============================================================================
//                              分组注册表
// ============================================================================

// GroupRegistry 分组注册表
//
// 以 (实例, 分组) 为键的共享存储，管理器写入，其他组件只读。
// 实现必须是并发安全的；注册表只保存句柄，
// 不负责分组的生命周期。
type GroupRegistry interface {
	// Lookup 查找分组句柄，不存在时第二个返回值为 false
	Lookup(swarm types.SwarmID, id types.GroupID) (GroupHandle, bool)

	// Insert 写入分组句柄（同键覆盖）
	Insert(swarm types.SwarmID, id types.GroupID, h GroupHandle)

	// Remove 删除分组条目，不存在时为空操作
	Remove(swarm types.SwarmID, id types.GroupID)

	// All 返回实例下所有已注册分组
	All(swarm types.SwarmID) []GroupEntry
}

// ============================================================================
//                              分组启动规格
// ============================================================================

// GroupStartFunc 分组 worker 树的启动函数
//
// 实现应在 parent 之下创建顶层进程，再在顶层进程之下
// 挂接各 worker，返回顶层进程与主工作进程。
// 启动失败时必须自行清理已创建的进程再返回错误。
type GroupStartFunc func(parent goprocess.Process, id types.GroupID, args []any) (top, primary goprocess.Process, err error)
