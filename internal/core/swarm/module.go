// Package swarm 的 Fx 模块装配
package swarm

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
)

// Params Swarm 依赖参数
type Params struct {
	fx.In

	Cfg    *Config `optional:"true"`
	Dialer Dialer  `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("swarm",
		fx.Provide(
			ProvideListener,
			ProvideConnector,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideListener 提供入站引导器
func ProvideListener(neg *negotiate.Negotiator, p Params) (*Listener, error) {
	cfg := DefaultConfig()
	if p.Cfg != nil {
		cfg = *p.Cfg
	}
	return NewListener(cfg, neg)
}

// ProvideConnector 提供出站引导器
func ProvideConnector(client *negotiate.Client, p Params) *Connector {
	dialer := p.Dialer
	if dialer == nil {
		dialer = NewNetDialer()
	}
	return NewConnector(dialer, client)
}

// registerLifecycle 挂接监听器生命周期
func registerLifecycle(lc fx.Lifecycle, l *Listener) {
	lc.Append(fx.Hook{
		OnStart: l.Start,
		OnStop:  l.Stop,
	})
}
