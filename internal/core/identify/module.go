// Package identify 的 Fx 模块装配
package identify

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
)

// Params Identify 依赖参数
type Params struct {
	fx.In

	Signer   Signer `optional:"true"`
	Registry *negotiate.Registry
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("identify",
		fx.Provide(ProvideService),
		fx.Invoke(registerProtocol),
	)
}

// ProvideService 提供 Identify 服务
//
// 未注入签名器时返回 nil，协议不会被注册。
func ProvideService(p Params) *Service {
	if p.Signer == nil {
		return nil
	}
	return NewService(p.Signer, p.Registry)
}

// registerProtocol 把 Identify 注册为前缀处理器
func registerProtocol(s *Service) error {
	if s == nil {
		return nil
	}
	return s.Register()
}
