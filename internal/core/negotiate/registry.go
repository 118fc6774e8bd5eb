package negotiate

import (
	"strings"
	"sync"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
)

// entry 注册表条目
type entry struct {
	prefix  string
	handler interfaces.Handler
}

// Registry 前缀处理器注册表
//
// 条目有序保存，顺序由调用方的注册顺序决定；
// 匹配按前缀进行，注册顺序只在前缀等长时充当平局种子。
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry 创建前缀处理器注册表
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]entry, 0),
	}
}

// Register 注册前缀处理器
func (r *Registry) Register(prefix string, h interfaces.Handler) error {
	if prefix == "" {
		return ErrEmptyPrefix
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.prefix == prefix {
			return ErrDuplicatePrefix
		}
	}

	r.entries = append(r.entries, entry{prefix: prefix, handler: h})
	return nil
}

// Unregister 注销前缀处理器
//
// 未注册的前缀按空操作处理。
func (r *Registry) Unregister(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.prefix == prefix {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Prefixes 返回所有已注册前缀（保持注册顺序）
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefixes := make([]string, len(r.entries))
	for i, e := range r.entries {
		prefixes[i] = e.prefix
	}
	return prefixes
}

// Len 返回已注册条目数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// snapshot 返回条目的不可变副本
//
// 会话在开始时取一次快照，之后的注册变更不影响进行中的会话。
func (r *Registry) snapshot() []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make([]entry, len(r.entries))
	copy(snap, r.entries)
	return snap
}

// ============================================================================
//                              最长前缀匹配
// ============================================================================

// Match 匹配结果
type Match struct {
	// Prefix 命中的前缀
	Prefix string

	// Handler 前缀绑定的处理器
	Handler interfaces.Handler

	// Remainder 去掉前缀后的剩余部分
	//
	// 从前缀后第一个字符开始原样截取，不保证以分隔符开头。
	Remainder string
}

// matchLongest 对 line 执行最长前缀匹配
//
// 遍历全部条目，保留前缀长度严格更大的候选；
// 等长前缀保留先注册者。没有任何命中时第二个返回值为 false。
func matchLongest(entries []entry, line string) (Match, bool) {
	best := -1
	bestLen := 0

	for i, e := range entries {
		if len(e.prefix) > bestLen && strings.HasPrefix(line, e.prefix) {
			best = i
			bestLen = len(e.prefix)
		}
	}

	if best < 0 {
		return Match{}, false
	}

	e := entries[best]
	return Match{
		Prefix:    e.prefix,
		Handler:   e.handler,
		Remainder: line[len(e.prefix):],
	}, true
}

// MatchLine 对 line 执行最长前缀匹配（读锁下的便捷入口）
func (r *Registry) MatchLine(line string) (Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchLongest(r.entries, line)
}
