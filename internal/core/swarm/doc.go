// Package swarm 提供连接引导的出入站管道
//
// Listener 接受入站连接，每个连接交给一个全新的协商会话；
// Connector 负责出站拨号加客户端协商。地址解析与传输选择
// 是外部协作者，这里只消费 net.Listener / Dialer 接口。
package swarm
