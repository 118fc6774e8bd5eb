package group

import (
	"sort"
	"sync"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

// Table GroupRegistry 的内存实现
//
// 以 (实例, 分组) 为键的共享表：管理器写入，其他组件只读。
// 一个进程内的多个网络实例共用同一张表，互不可见。
type Table struct {
	mu     sync.RWMutex
	groups map[types.SwarmID]map[types.GroupID]interfaces.GroupHandle
}

var _ interfaces.GroupRegistry = (*Table)(nil)

// NewTable 创建分组注册表
func NewTable() *Table {
	return &Table{
		groups: make(map[types.SwarmID]map[types.GroupID]interfaces.GroupHandle),
	}
}

// Lookup 查找分组句柄
func (t *Table) Lookup(swarm types.SwarmID, id types.GroupID) (interfaces.GroupHandle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.groups[swarm][id]
	return h, ok
}

// Insert 写入分组句柄（同键覆盖）
func (t *Table) Insert(swarm types.SwarmID, id types.GroupID, h interfaces.GroupHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.groups[swarm] == nil {
		t.groups[swarm] = make(map[types.GroupID]interfaces.GroupHandle)
	}
	t.groups[swarm][id] = h
}

// Remove 删除分组条目
func (t *Table) Remove(swarm types.SwarmID, id types.GroupID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.groups[swarm], id)
	if len(t.groups[swarm]) == 0 {
		delete(t.groups, swarm)
	}
}

// All 返回实例下所有已注册分组（按 ID 排序，便于稳定遍历）
func (t *Table) All(swarm types.SwarmID) []interfaces.GroupEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]interfaces.GroupEntry, 0, len(t.groups[swarm]))
	for id, h := range t.groups[swarm] {
		entries = append(entries, interfaces.GroupEntry{ID: id, Handle: h})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}
