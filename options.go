package swarmcore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-swarmcore/internal/core/group"
	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
	coreswarm "github.com/dep2p/go-swarmcore/internal/core/swarm"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

// stackConfig Stack 构建配置
type stackConfig struct {
	swarm         types.SwarmID
	negotiateCfg  negotiate.Config
	groupCfg      group.Config
	swarmCfg      coreswarm.Config
	handlerOption any
	registerer    prometheus.Registerer
	userFxOptions []fx.Option
}

// defaultStackConfig 返回默认构建配置
func defaultStackConfig() *stackConfig {
	return &stackConfig{
		swarm:        "default",
		negotiateCfg: negotiate.DefaultConfig(),
		groupCfg:     group.DefaultConfig(),
		swarmCfg:     coreswarm.DefaultConfig(),
	}
}

// Option Stack 构建选项
type Option func(*stackConfig)

// WithSwarmID 设置网络实例标识
func WithSwarmID(id string) Option {
	return func(c *stackConfig) { c.swarm = types.SwarmID(id) }
}

// WithListenAddr 设置入站监听地址（host:port）
func WithListenAddr(addr string) Option {
	return func(c *stackConfig) { c.swarmCfg.ListenAddr = addr }
}

// WithStorageDir 配置分组存储根目录与垃圾回收的删除谓词
//
// pred 输入存储根目录下的子目录名，返回该目录是否可删除；
// 调用方必须保证谓词不会命中任何存活分组的目录。
func WithStorageDir(dir string, pred func(name string) bool) Option {
	return func(c *stackConfig) {
		c.groupCfg.StorageDir = dir
		c.groupCfg.DeletionPredicate = pred
	}
}

// WithNegotiationTimeout 设置协商读等待超时
func WithNegotiationTimeout(d time.Duration) Option {
	return func(c *stackConfig) { c.negotiateCfg.NegotiationTimeout = d }
}

// WithGCInterval 设置垃圾回收周期
func WithGCInterval(d time.Duration) Option {
	return func(c *stackConfig) { c.groupCfg.GCInterval = d }
}

// WithStopTimeout 设置分组优雅停止的等待上界
func WithStopTimeout(d time.Duration) Option {
	return func(c *stackConfig) { c.groupCfg.StopTimeout = d }
}

// WithHandlerOption 设置线程到处理器调用的选项值
func WithHandlerOption(opt any) Option {
	return func(c *stackConfig) { c.handlerOption = opt }
}

// WithMetrics 接入 Prometheus 指标
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *stackConfig) { c.registerer = reg }
}

// WithFxOption 追加用户自定义 Fx 选项（扩展点）
func WithFxOption(opts ...fx.Option) Option {
	return func(c *stackConfig) { c.userFxOptions = append(c.userFxOptions, opts...) }
}
