// Package negotiate 的 Fx 模块装配
package negotiate

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Params Negotiate 依赖参数
type Params struct {
	fx.In

	Cfg *Config `optional:"true"`

	// HandlerOption 线程到处理器调用的选项值
	HandlerOption any `name:"handler_option" optional:"true"`

	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("negotiate",
		fx.Provide(
			NewRegistry,
			ProvideNegotiator,
			ProvideClient,
		),
	)
}

// ProvideNegotiator 提供服务端协商器
func ProvideNegotiator(registry *Registry, p Params) *Negotiator {
	cfg := DefaultConfig()
	if p.Cfg != nil {
		cfg = *p.Cfg
	}

	n := NewNegotiator(registry, cfg, p.HandlerOption)
	if p.Registerer != nil {
		n.SetMetrics(NewMetrics(p.Registerer))
	}
	return n
}

// ProvideClient 提供客户端协商器
func ProvideClient(p Params) (*Client, error) {
	cfg := DefaultConfig()
	if p.Cfg != nil {
		cfg = *p.Cfg
	}
	return NewClient(cfg)
}
