// Package main 提供 swarmcore 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dep2p/go-swarmcore"
	"github.com/dep2p/go-swarmcore/pkg/lib/log"
)

var logger = log.Logger("swarmcore/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 运行时参数
	// ─────────────────────────────────────────────────────────────────────
	listenAddr = flag.String("listen", "127.0.0.1:4001", "监听地址（host:port，空 = 不监听）")
	swarmID    = flag.String("swarm", "default", "网络实例标识")
	storageDir = flag.String("storage-dir", "", "分组存储根目录（空 = 禁用垃圾回收）")
	gcPrefix   = flag.String("gc-prefix", "removed-", "垃圾回收删除谓词：匹配此前缀的目录可删除")
	negTimeout = flag.Duration("negotiation-timeout", 30*time.Second, "协商读等待超时")

	// ─────────────────────────────────────────────────────────────────────
	// 日志参数
	// ─────────────────────────────────────────────────────────────────────
	logFile  = flag.String("log", "", "日志文件路径")
	logDir   = flag.String("log-dir", "logs", "日志目录")
	autoLog  = flag.Bool("auto-log", false, "自动生成日志文件")
	logLevel = flag.String("log-level", "info", "日志级别 (debug/info/warn/error)")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
)

// Version 构建版本（由构建脚本注入）
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("swarmcore %s\n", Version)
		return nil
	}

	log.SetLevel(parseLogLevel(*logLevel))

	logFileHandle, logPath, err := setupLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告: %v\n", err)
		fmt.Fprintln(os.Stderr, "将继续使用控制台输出日志")
	}
	if logFileHandle != nil {
		defer func() { _ = logFileHandle.Close() }()
	}

	opts := []swarmcore.Option{
		swarmcore.WithSwarmID(*swarmID),
		swarmcore.WithListenAddr(*listenAddr),
		swarmcore.WithNegotiationTimeout(*negTimeout),
	}
	if *storageDir != "" {
		prefix := *gcPrefix
		opts = append(opts, swarmcore.WithStorageDir(*storageDir, func(name string) bool {
			return strings.HasPrefix(name, prefix)
		}))
	}

	stack, err := swarmcore.New(opts...)
	if err != nil {
		return fmt.Errorf("构建失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("启动 swarmcore 节点", "version", Version, "swarm", *swarmID)
	if err := stack.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	printNodeInfo(stack, logPath)

	fmt.Println("节点已启动，按 Ctrl+C 退出")
	waitForSignal()

	fmt.Println("\n正在关闭节点...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer stopCancel()
	return stack.Stop(stopCtx)
}

// parseLogLevel 解析日志级别参数
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

// setupLogging 设置日志输出
//
// 未指定日志文件且未启用自动日志时，日志输出到 stderr。
func setupLogging() (*os.File, string, error) {
	if !*autoLog && *logFile == "" {
		return nil, "", nil
	}

	logPath := *logFile
	if logPath == "" {
		timestamp := time.Now().Format("20060102-150405")
		logPath = filepath.Join(*logDir, fmt.Sprintf("swarmcore-%s-%d.log", timestamp, os.Getpid()))
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return nil, "", fmt.Errorf("创建日志目录失败: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, "", fmt.Errorf("打开日志文件失败: %w", err)
	}

	log.SetOutput(file)
	return file, logPath, nil
}

// printNodeInfo 打印节点信息
func printNodeInfo(stack *swarmcore.Stack, logPath string) {
	fmt.Println()
	fmt.Printf("swarmcore %s\n", Version)
	fmt.Printf("  swarm:    %s\n", stack.Swarm())
	if addr := stack.Listener().Addr(); addr != nil {
		fmt.Printf("  listen:   %s\n", addr)
	}
	fmt.Printf("  protocols: %s\n", strings.Join(stack.Registry().Prefixes(), ", "))
	if logPath != "" {
		fmt.Printf("  log file: %s\n", logPath)
	}
	fmt.Println()
}
