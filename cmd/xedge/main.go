// xedge 是部署在源站前面的 HTTP 边缘治理代理。
//
// 用法:
//
//	xedge [全局选项] <命令> [命令参数]
//
// 命令:
//
//	serve          启动代理
//	check-config   校验配置并打印生效的策略表
//
// 配置来源依次为默认值、--config 指定的文件、XEDGE_ 前缀环境变量、命令行参数。
//
// 退出码:
//
//	0: 正常退出（包括收到 SIGINT/SIGTERM）
//	1: 运行失败
//	2: 配置无效
//
// 示例:
//
//	xedge serve --config /etc/xedge/xedge.yaml
//	xedge serve --origin http://127.0.0.1:3000 --memory-store
//	XEDGE_ABUSE__BURST_THRESHOLD=500 xedge check-config --config xedge.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xedge/internal/edgeconf"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xedge",
		Usage:   "HTTP 边缘治理代理：滥用防护、配额、安全头与响应缓存",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Commands: []*cli.Command{
			serveCommand(),
			checkConfigCommand(),
		},
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(args []string) int {
	if err := createApp().Run(context.Background(), args); err != nil {
		if errors.Is(err, edgeconf.ErrInvalidConfig) {
			fmt.Fprintf(os.Stderr, "配置无效: %v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
