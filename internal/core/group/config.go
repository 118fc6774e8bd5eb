package group

import "time"

// Config 分组管理器配置
type Config struct {
	// StorageDir 分组存储根目录，空字符串关闭垃圾回收
	StorageDir string

	// DeletionPredicate 垃圾回收的删除谓词
	//
	// 输入存储根目录下的子目录名，返回该目录是否可删除。
	// 调用方必须保证谓词不会命中任何存活分组的目录。
	DeletionPredicate func(name string) bool

	// StopTimeout 优雅停止的等待上界
	//
	// RemoveGroup / StopAll 等待死亡通知的时间不超过此值，
	// 超过后无条件继续（容忍卡死的 worker）。
	StopTimeout time.Duration

	// GCStartupDelay 启动后首轮垃圾回收的延迟
	GCStartupDelay time.Duration

	// GCInterval 垃圾回收的周期
	GCInterval time.Duration

	// GCScanLimit 单轮扫描的目录项上限（防止无界扫描）
	GCScanLimit int

	// GCDeleteLimit 单轮删除的目录数上限（限制单轮 IO）
	GCDeleteLimit int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		StopTimeout:    30 * time.Second,
		GCStartupDelay: 30 * time.Second,
		GCInterval:     30 * time.Second,
		GCScanLimit:    100,
		GCDeleteLimit:  50,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.StopTimeout <= 0 || c.GCStartupDelay <= 0 || c.GCInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.GCScanLimit <= 0 || c.GCDeleteLimit <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WithStorageDir 设置存储根目录
func (c Config) WithStorageDir(dir string) Config {
	c.StorageDir = dir
	return c
}

// WithDeletionPredicate 设置删除谓词
func (c Config) WithDeletionPredicate(pred func(name string) bool) Config {
	c.DeletionPredicate = pred
	return c
}

// WithStopTimeout 设置优雅停止等待上界
func (c Config) WithStopTimeout(d time.Duration) Config {
	c.StopTimeout = d
	return c
}

// WithGCInterval 设置垃圾回收周期
func (c Config) WithGCInterval(d time.Duration) Config {
	c.GCInterval = d
	return c
}
