package negotiate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/lib/log"
)

var logger = log.Logger("core/negotiate")

// ============================================================================
//                              Negotiator 实现
// ============================================================================

// Negotiator 服务端协商器
//
// Negotiator 自身可在任意多个连接间共享；Serve 为每个连接
// 创建独立的会话，会话之间只共享注册表快照，无共享可变状态。
type Negotiator struct {
	registry *Registry
	cfg      Config
	opt      any
	metrics  *Metrics
}

// NewNegotiator 创建协商器
//
// opt 是线程到处理器调用的处理器选项值，对协商器本身不透明。
func NewNegotiator(registry *Registry, cfg Config, opt any) *Negotiator {
	if cfg.NegotiationTimeout == 0 {
		cfg = DefaultConfig()
	}

	return &Negotiator{
		registry: registry,
		cfg:      cfg,
		opt:      opt,
	}
}

// SetMetrics 设置指标收集器（可选）
func (n *Negotiator) SetMetrics(m *Metrics) {
	n.metrics = m
}

// Registry 返回协商器使用的注册表
func (n *Negotiator) Registry() *Registry {
	return n.registry
}

// Serve 以服务端角色驱动一次协商，阻塞直到会话终止
//
// 成功分发后连接归处理器所有，协商器不再碰它；
// 其余所有路径（握手失败、超时、IO 错误、处理器返回错误）
// 都会关闭连接。返回值只用于日志与指标，不向上传播会话内错误。
func (n *Negotiator) Serve(conn interfaces.Conn) error {
	s := &session{
		id:      uuid.NewString(),
		conn:    conn,
		r:       bufio.NewReader(conn),
		w:       bufio.NewWriter(conn),
		entries: n.registry.snapshot(),
		opt:     n.opt,
		timeout: n.cfg.NegotiationTimeout,
		metrics: n.metrics,
	}

	handedOff, err := s.run()
	if !handedOff {
		_ = conn.Close()
	}

	switch {
	case err == nil:
		n.metrics.Session("dispatched")
	case errors.Is(err, ErrNegotiationTimeout):
		// 读超时是干净的会话终止，不算告警
		logger.Debug("协商超时，关闭会话", "session", s.id)
		n.metrics.Session("timeout")
	case errors.Is(err, ErrProtocolMismatch):
		logger.Debug("握手不匹配，关闭会话", "session", s.id)
		n.metrics.Session("mismatch")
	case errors.Is(err, ErrConnectionClosed):
		logger.Debug("对端关闭连接", "session", s.id)
		n.metrics.Session("closed")
	default:
		logger.Warn("协商会话异常终止", "session", s.id, "error", err)
		n.metrics.Session("error")
	}
	return err
}

// ============================================================================
//                              会话
// ============================================================================

// session 单连接协商会话
//
// 会话内部严格串行：握手行必须先于任何协议行被处理。
type session struct {
	id      string
	conn    interfaces.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	entries []entry
	opt     any
	timeout time.Duration
	metrics *Metrics
}

// run 驱动握手与读-分发循环
//
// 第一个返回值表示连接所有权是否已移交处理器。
func (s *session) run() (bool, error) {
	// 握手：先发本端标识，再读对端一行比对
	if err := writeLineFlush(s.w, HandshakeID); err != nil {
		return false, classifyIOErr(err)
	}

	line, err := s.read()
	if err != nil {
		return false, err
	}
	if line != HandshakeID {
		return false, fmt.Errorf("%w: got %q", ErrProtocolMismatch, line)
	}

	// 读-分发循环
	for {
		line, err := s.read()
		if err != nil {
			return false, err
		}

		if line == LS {
			// 回应完整有序前缀列表，每个前缀单独一帧；会话继续
			for _, e := range s.entries {
				if err := writeLine(s.w, e.prefix); err != nil {
					return false, classifyIOErr(err)
				}
			}
			if err := s.w.Flush(); err != nil {
				return false, classifyIOErr(err)
			}
			continue
		}

		m, ok := matchLongest(s.entries, line)
		if !ok {
			// 未命中不终止会话
			logger.Debug("无前缀命中", "session", s.id, "line", line)
			if err := writeLineFlush(s.w, NA); err != nil {
				return false, classifyIOErr(err)
			}
			continue
		}

		// 回显原行作为确认，取消协商计时，移交连接
		if err := writeLineFlush(s.w, line); err != nil {
			return false, classifyIOErr(err)
		}
		_ = s.conn.SetReadDeadline(time.Time{})

		logger.Debug("协议分发",
			"session", s.id,
			"prefix", m.Prefix,
			"remainder", m.Remainder)
		s.metrics.Dispatch(m.Prefix)

		if err := m.Handler.Handle(s.dispatchConn(), m.Remainder, s.opt); err != nil {
			return false, fmt.Errorf("%w: %v", ErrHandlerFailed, err)
		}
		return true, nil
	}
}

// read 重新武装读等待后读取一行
func (s *session) read() (string, error) {
	if s.timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	}

	line, err := readLine(s.r)
	if err != nil {
		return "", classifyIOErr(err)
	}
	return line, nil
}

// dispatchConn 返回移交给处理器的连接
//
// 对端可能在确认到达前就发送了载荷，残留在会话缓冲区里；
// 移交时把缓冲区与底层连接拼接，避免丢字节。
func (s *session) dispatchConn() interfaces.Conn {
	if s.r.Buffered() == 0 {
		return s.conn
	}
	return &bufferedConn{
		Conn: s.conn,
		r:    io.MultiReader(io.LimitReader(s.r, int64(s.r.Buffered())), s.conn),
	}
}

// bufferedConn 把缓冲区残留数据接回连接读取路径
type bufferedConn struct {
	interfaces.Conn
	r io.Reader
}

// Read 先读缓冲区残留，再读底层连接
func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// ============================================================================
//                              错误分类
// ============================================================================

// classifyIOErr 把底层 IO 错误映射到协商错误分类
//
// 读超时与对端正常关闭是协商的两种干净终止方式，
// 其余错误原样向上。
func classifyIOErr(err error) error {
	var ne net.Error
	switch {
	case errors.As(err, &ne) && ne.Timeout():
		return ErrNegotiationTimeout
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrNegotiationTimeout
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrClosedPipe):
		return ErrConnectionClosed
	default:
		return err
	}
}
