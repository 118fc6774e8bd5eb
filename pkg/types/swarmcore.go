// Package types 提供 swarmcore 的基础类型定义
//
// 所有跨组件共享的标识类型都定义在这里，
// 避免 internal 包之间的循环依赖。
package types

import "strings"

// ============================================================================
//                              标识类型
// ============================================================================

// ProtocolID 协议标识
//
// 形如 "/identify/1.0.0" 的路径式字符串，
// 协商时作为前缀参与最长前缀匹配。
type ProtocolID string

// String 返回协议 ID 字符串
func (p ProtocolID) String() string {
	return string(p)
}

// Empty 检查协议 ID 是否为空
func (p ProtocolID) Empty() bool {
	return len(p) == 0
}

// SwarmID 网络实例标识
//
// 一个进程内可以运行多个网络实例，
// 分组与注册表都以 SwarmID 为命名空间。
type SwarmID string

// String 返回实例 ID 字符串
func (s SwarmID) String() string {
	return string(s)
}

// GroupID 分组标识
//
// 分组是长生命周期的 worker 树（如共识组、复制组），
// 每个分组独占存储根目录下的同名子目录。
type GroupID string

// String 返回分组 ID 字符串
func (g GroupID) String() string {
	return string(g)
}

// Valid 检查分组 ID 是否可以作为存储子目录名
//
// 空 ID 与含路径分隔符的 ID 都不合法。
func (g GroupID) Valid() bool {
	if len(g) == 0 {
		return false
	}
	return !strings.ContainsAny(string(g), "/\\")
}
