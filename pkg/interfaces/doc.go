// Package interfaces 定义 swarmcore 的公共接口
//
// 本包只放跨组件共享的契约（一个接口文件 = 一个实现目录）：
//
//   - negotiate.go - 协商器消费的连接与处理器契约
//   - group.go     - 分组句柄、注册表与启动规格
//
// 设计原则：
//   - 接受接口，返回结构体
//   - 外部协作者（传输、签名、地址解析）只在接口层出现
//   - 注册表等共享依赖通过构造函数显式注入，不使用全局表
package interfaces
