package interfaces

import (
	"io"
	"time"
)

// ============================================================================
//                              连接边界
// ============================================================================

// Conn 协商器消费的双工连接
//
// 只要求逐字节读写与读超时控制，net.Conn 天然满足。
// 行帧的编解码由协商器自己完成，传输层不感知。
type Conn interface {
	io.ReadWriteCloser

	// SetReadDeadline 设置读截止时间
	//
	// 零值 time.Time 表示清除截止时间。
	SetReadDeadline(t time.Time) error
}

// ============================================================================
//                              处理器契约
// ============================================================================

// Handler 协商成功后接管连接的处理器
//
// 调用约定：协商器在回显匹配行之后调用 Handle，
// 连接的所有权（包括关闭责任）随之转移给处理器。
// remainder 是匹配前缀之后的剩余字符串，原样传递，
// 不保证以分隔符开头。opt 是构造协商器时注入的处理器选项值。
type Handler interface {
	Handle(conn Conn, remainder string, opt any) error
}

// HandlerFunc 简单处理器（函数适配器）
type HandlerFunc func(conn Conn, remainder string, opt any) error

// Handle 实现 Handler 接口
func (f HandlerFunc) Handle(conn Conn, remainder string, opt any) error {
	return f(conn, remainder, opt)
}

// ParameterizedHandler 带固定参数的处理器
//
// Args 在注册时绑定，每次分发原样追加到调用尾部。
// 对应不带固定参数的场景请直接使用 HandlerFunc。
type ParameterizedHandler struct {
	Fn   func(conn Conn, remainder string, opt any, args ...any) error
	Args []any
}

// Handle 实现 Handler 接口
func (p ParameterizedHandler) Handle(conn Conn, remainder string, opt any) error {
	return p.Fn(conn, remainder, opt, p.Args...)
}
