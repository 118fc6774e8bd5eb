// Package group 的 Fx 模块装配
package group

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

// Params Group 依赖参数
type Params struct {
	fx.In

	Swarm    types.SwarmID
	Registry interfaces.GroupRegistry

	Cfg        *Config               `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("group",
		fx.Provide(
			fx.Annotate(
				NewTable,
				fx.As(new(interfaces.GroupRegistry)),
			),
			ProvideManager,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideManager 提供分组管理器
func ProvideManager(p Params) (*Manager, error) {
	cfg := DefaultConfig()
	if p.Cfg != nil {
		cfg = *p.Cfg
	}

	m, err := NewManager(p.Swarm, p.Registry, cfg)
	if err != nil {
		return nil, err
	}
	if p.Registerer != nil {
		m.SetMetrics(NewMetrics(p.Registerer))
	}
	return m, nil
}

// registerLifecycle 挂接管理器生命周期
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: m.Start,
		OnStop:  m.Stop,
	})
}
