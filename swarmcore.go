package swarmcore

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-swarmcore/internal/core/group"
	"github.com/dep2p/go-swarmcore/internal/core/negotiate"
	coreswarm "github.com/dep2p/go-swarmcore/internal/core/swarm"
	"github.com/dep2p/go-swarmcore/pkg/interfaces"
	"github.com/dep2p/go-swarmcore/pkg/lib/log"
	"github.com/dep2p/go-swarmcore/pkg/types"
)

var logger = log.Logger("swarmcore")

// Stack 网络栈门面
//
// 聚合协商器、分组管理器与出入站引导器，背后由 Fx 完成装配。
// 一个 Stack 对应一个网络实例（SwarmID），分组管理器在实例内是单例。
type Stack struct {
	app *fx.App

	swarm     types.SwarmID
	registry  *negotiate.Registry
	neg       *negotiate.Negotiator
	client    *negotiate.Client
	connector *coreswarm.Connector
	listener  *coreswarm.Listener
	manager   *group.Manager
	groups    interfaces.GroupRegistry
}

// New 构建网络栈（不启动）
func New(opts ...Option) (*Stack, error) {
	cfg := defaultStackConfig()
	for _, o := range opts {
		o(cfg)
	}

	s := &Stack{swarm: cfg.swarm}
	s.app = buildFxApp(cfg, s)
	if err := s.app.Err(); err != nil {
		return nil, fmt.Errorf("swarmcore: 装配失败: %w", err)
	}
	return s, nil
}

// Start 启动网络栈（监听器、分组管理器）
func (s *Stack) Start(ctx context.Context) error {
	logger.Info("启动网络栈", "swarm", s.swarm)
	return s.app.Start(ctx)
}

// Stop 停止网络栈
//
// 按生命周期逆序停止：先关监听器，再停所有分组。
func (s *Stack) Stop(ctx context.Context) error {
	logger.Info("停止网络栈", "swarm", s.swarm)
	return s.app.Stop(ctx)
}

// Swarm 返回网络实例标识
func (s *Stack) Swarm() types.SwarmID { return s.swarm }

// Registry 返回协议前缀注册表
func (s *Stack) Registry() *negotiate.Registry { return s.registry }

// Negotiator 返回服务端协商器
func (s *Stack) Negotiator() *negotiate.Negotiator { return s.neg }

// Client 返回客户端协商器
func (s *Stack) Client() *negotiate.Client { return s.client }

// Connector 返回出站引导器
func (s *Stack) Connector() *coreswarm.Connector { return s.connector }

// Listener 返回入站引导器
func (s *Stack) Listener() *coreswarm.Listener { return s.listener }

// Manager 返回分组管理器
func (s *Stack) Manager() *group.Manager { return s.manager }

// Groups 返回分组注册表（只读视角）
func (s *Stack) Groups() interfaces.GroupRegistry { return s.groups }

// ============================================================================
//                              便捷方法
// ============================================================================

// RegisterHandler 注册协议前缀处理器
func (s *Stack) RegisterHandler(prefix string, h interfaces.Handler) error {
	return s.registry.Register(prefix, h)
}

// AddGroup 启动并登记一个分组
func (s *Stack) AddGroup(id types.GroupID, start interfaces.GroupStartFunc, args []any) (interfaces.GroupHandle, error) {
	return s.manager.AddGroup(id, start, args)
}

// RemoveGroup 停止并注销一个分组
func (s *Stack) RemoveGroup(id types.GroupID) error {
	return s.manager.RemoveGroup(id)
}
