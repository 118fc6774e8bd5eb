package swarmcore

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-swarmcore/internal/core/group"
	"github.com/dep2p/go-swarmcore/internal/core/identify"
	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
	coreswarm "github.com/dep2p/go-swarmcore/internal/core/swarm"
	"github.com/dep2p/go-swarmcore/pkg/interfaces"
)

// buildFxApp 装配 Fx 应用
//
// 所有核心模块在这里接线；populate 回填到 Stack 门面。
func buildFxApp(cfg *stackConfig, s *Stack) *fx.App {
	negotiateCfg := cfg.negotiateCfg
	groupCfg := cfg.groupCfg
	swarmCfg := cfg.swarmCfg

	options := []fx.Option{
		// 基础供给
		fx.Supply(cfg.swarm),
		fx.Supply(&negotiateCfg),
		fx.Supply(&groupCfg),
		fx.Supply(&swarmCfg),

		// 处理器选项值（线程到每次分发）
		fx.Provide(
			fx.Annotate(
				func() any { return cfg.handlerOption },
				fx.ResultTags(`name:"handler_option"`),
			),
		),

		// 核心模块
		negotiate.Module(),
		group.Module(),
		coreswarm.Module(),
		identify.Module(),

		// 回填门面
		fx.Invoke(func(
			registry *negotiate.Registry,
			neg *negotiate.Negotiator,
			client *negotiate.Client,
			connector *coreswarm.Connector,
			listener *coreswarm.Listener,
			manager *group.Manager,
			groups interfaces.GroupRegistry,
		) {
			s.registry = registry
			s.neg = neg
			s.client = client
			s.connector = connector
			s.listener = listener
			s.manager = manager
			s.groups = groups
		}),

		// 静默 Fx 自身日志
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	}

	if cfg.registerer != nil {
		registerer := cfg.registerer
		options = append(options, fx.Provide(func() prometheus.Registerer {
			return registerer
		}))
	}

	options = append(options, cfg.userFxOptions...)

	return fx.New(options...)
}
