// Package swarmcore 是点对点网络栈的连接引导与分组生命周期核心
//
// 两个紧耦合的子系统构成核心：
//
//   - 协议协商器（internal/core/negotiate）：每连接一个的状态机，
//     完成握手、按行协议读取协议名、对前缀处理器注册表做最长前缀匹配，
//     并把存活连接移交命中的处理器
//   - 分组生命周期管理器（internal/core/group）：每个网络实例一个的
//     单例协调器，负责分组 worker 树的启动、监控与拆除，
//     并周期性回收删除谓词标记的磁盘分组目录
//
// 经协商分发的载荷协议（如 identify）、地址解析与出站拨号、
// 密码学签名都是外部协作者，只在接口边界出现。
//
// 快速上手：
//
//	stack, err := swarmcore.New(
//		swarmcore.WithSwarmID("main"),
//		swarmcore.WithListenAddr("127.0.0.1:4001"),
//	)
//	if err != nil { ... }
//	if err := stack.Start(ctx); err != nil { ... }
//	defer stack.Stop(ctx)
//
//	stack.Registry().Register("/echo/1.0.0", interfaces.HandlerFunc(echo))
package swarmcore
