// Package group 提供分组生命周期管理
//
// 分组是长生命周期的 worker 树（如共识组、复制组），
// 以 goprocess 进程树表达：顶层进程是树的所有者，
// 主工作进程独占该分组在存储根目录下的同名子目录。
//
// Manager 是每个网络实例的单例协调器：
//   - AddGroup / RemoveGroup / StopAll 通过单一执行循环严格串行，
//     这也是防止同一分组被并发重复启动的机制
//   - 订阅每个分组主工作进程的死亡通知，意外死亡时就地清理注册状态
//   - 周期性扫描存储根目录，删除删除谓词标记的过期分组目录
//
// 垃圾回收与分组操作共享同一个执行循环，
// 一轮慢 GC 会推迟分组操作，反之亦然。
package group
