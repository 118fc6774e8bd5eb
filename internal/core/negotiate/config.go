package negotiate

import "time"

// Config 协商模块配置
type Config struct {
	// NegotiationTimeout 单次读等待的超时时间
	//
	// 每次进入读等待前重新武装；超时按正常终止处理。
	NegotiationTimeout time.Duration

	// CacheSize 客户端协商结果缓存的容量
	CacheSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		NegotiationTimeout: 30 * time.Second,
		CacheSize:          4096,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.NegotiationTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.CacheSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WithNegotiationTimeout 设置协商超时
func (c Config) WithNegotiationTimeout(timeout time.Duration) Config {
	c.NegotiationTimeout = timeout
	return c
}

// WithCacheSize 设置客户端缓存容量
func (c Config) WithCacheSize(n int) Config {
	c.CacheSize = n
	return c
}
