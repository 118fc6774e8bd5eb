package swarm

import "errors"

// ErrInvalidConfig 配置不合法
var ErrInvalidConfig = errors.New("swarm: invalid config")

// Config 出入站管道配置
type Config struct {
	// ListenAddr 监听地址（host:port），空字符串关闭入站监听
	ListenAddr string

	// MaxConcurrentNegotiations 并发协商会话的上限
	//
	// 超过上限时 accept 循环阻塞，直到有会话结束释放名额。
	MaxConcurrentNegotiations int64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxConcurrentNegotiations: 256,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MaxConcurrentNegotiations <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WithListenAddr 设置监听地址
func (c Config) WithListenAddr(addr string) Config {
	c.ListenAddr = addr
	return c
}
