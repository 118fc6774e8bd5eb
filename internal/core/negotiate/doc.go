// Package negotiate 提供连接引导的协议协商实现
//
// 基于 multistream-select 的行协议：
// https://github.com/multiformats/multistream-select
//
// 每条消息是一行 UTF-8 字符串，帧格式为
// uvarint 长度前缀（计入结尾换行符）+ 字符串 + '\n'。
//
// 服务端角色（Negotiator.Serve，每连接一个会话）：
//  1. 发送握手标识行，读回对端一行并比对，不等则关闭连接
//  2. 循环读取协议行：ls 返回完整前缀列表；命中最长前缀时
//     回显原行、取消协商计时并把连接移交处理器；未命中回应 na 继续等待
//  3. 读超时视为正常终止，其余 IO 错误为异常终止，两者都关闭连接
//
// 客户端角色（Client.Select）对称：读握手、回握手、
// 请求目标协议并等待回显。
//
// 会话内部严格串行（握手行必须先于协议行），
// 多个会话之间只共享不可变的注册表快照，可以任意并发。
package negotiate
