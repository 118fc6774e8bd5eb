package swarm

import (
	"context"
	"net"
	"sync"

	tec "github.com/jbenet/go-temp-err-catcher"
	"github.com/jbenet/goprocess"
	"golang.org/x/sync/semaphore"

	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
	"github.com/dep2p/go-swarmcore/pkg/lib/log"
)

var logger = log.Logger("core/swarm")

// Listener 入站连接引导器
//
// 每个被接受的连接交给一个全新的协商会话；
// 瞬时 accept 错误（如文件描述符耗尽）退避后继续。
type Listener struct {
	cfg Config
	neg *negotiate.Negotiator
	sem *semaphore.Weighted

	mu     sync.Mutex
	ln     net.Listener
	proc   goprocess.Process
	ctx    context.Context
	cancel context.CancelFunc
}

// NewListener 创建入站引导器
func NewListener(cfg Config, neg *negotiate.Negotiator) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Listener{
		cfg: cfg,
		neg: neg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrentNegotiations),
	}, nil
}

// Start 开始监听并运行 accept 循环
//
// 未配置监听地址时为空操作。
func (l *Listener) Start(_ context.Context) error {
	if l.cfg.ListenAddr == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", l.cfg.ListenAddr)
	if err != nil {
		return err
	}

	l.ln = ln
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.proc = goprocess.Go(l.acceptLoop)

	logger.Info("入站监听已启动", "addr", ln.Addr().String())
	return nil
}

// Stop 停止监听
func (l *Listener) Stop(_ context.Context) error {
	l.mu.Lock()
	proc := l.proc
	cancel := l.cancel
	l.mu.Unlock()

	if proc == nil {
		return nil
	}
	cancel()
	return proc.Close()
}

// Addr 返回实际监听地址（未监听时为 nil）
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// acceptLoop accept 循环
func (l *Listener) acceptLoop(proc goprocess.Process) {
	// 关闭监听器以解除 Accept 阻塞
	go func() {
		<-proc.Closing()
		_ = l.ln.Close()
	}()

	var catcher tec.TempErrCatcher
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				continue
			}
			select {
			case <-proc.Closing():
			default:
				logger.Warn("accept 循环退出", "error", err)
			}
			return
		}

		// 限制并发协商数；监听关闭时放弃排队中的连接
		if err := l.sem.Acquire(l.ctx, 1); err != nil {
			_ = conn.Close()
			return
		}

		go func() {
			defer l.sem.Release(1)
			_ = l.neg.Serve(conn)
		}()
	}
}
