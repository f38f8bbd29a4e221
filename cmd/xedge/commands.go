package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xedge/internal/edgeconf"
	"github.com/omeyang/xedge/pkg/config/xconf"
	"github.com/omeyang/xedge/pkg/lifecycle/xrun"
	"github.com/omeyang/xedge/pkg/observability/xlog"
)

// configDebounce 编辑器保存时常触发多次写事件
const configDebounce = 500 * time.Millisecond

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件路径（yaml/json），为空时只使用环境变量",
			Sources: cli.EnvVars("XEDGE_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "dotenv",
			Usage: ".env 文件路径，不存在时忽略",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "监听地址",
		},
		&cli.StringFlag{
			Name:  "origin",
			Usage: "源站地址，例如 http://127.0.0.1:3000",
		},
		&cli.StringSliceFlag{
			Name:  "redis-addr",
			Usage: "Redis 地址，可重复",
		},
		&cli.BoolFlag{
			Name:  "memory-store",
			Usage: "使用进程内存储（仅限单实例开发）",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "日志级别 debug/info/warn/error",
		},
	}
}

// loadConfig 按默认值、文件、环境变量、命令行参数的顺序得到配置
func loadConfig(cmd *cli.Command) (*edgeconf.Config, xconf.Config, error) {
	if err := edgeconf.LoadDotEnv(cmd.String("dotenv")); err != nil {
		return nil, nil, fmt.Errorf("load dotenv: %w", err)
	}
	src, err := edgeconf.Source(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	cfg := edgeconf.Default()
	if err := src.Unmarshal("", &cfg); err != nil {
		return nil, nil, err
	}

	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cmd.IsSet("origin") {
		cfg.Origin = cmd.String("origin")
	}
	if cmd.IsSet("redis-addr") {
		cfg.Redis.Addrs = cmd.StringSlice("redis-addr")
	}
	if cmd.IsSet("memory-store") {
		cfg.Store.Memory = cmd.Bool("memory-store")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, src, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动代理",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, src, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, closeLog, err := buildLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			e, err := buildEdge(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			services := []xrun.Service{
				xrun.Named("http", xrun.HTTPServer(e.server, cfg.ShutdownTimeout)),
			}
			if cmd.String("config") != "" {
				reloader := edgeconf.NewReloader(e.policies, e.envelope, logger)
				watcher, err := xconf.Watch(src, reloader.OnChange, xconf.WithDebounce(configDebounce))
				if err != nil {
					return err
				}
				services = append(services, xrun.Named("config-watch", watcher.Run))
			}

			logger.Info(ctx, "xedge starting",
				xlog.Component("xedge"),
				slog.String("listen", cfg.Listen),
				slog.String("origin", cfg.Origin),
				slog.String("version", Version))

			err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("xedge")}, services...)
			if errors.Is(err, xrun.ErrSignal) {
				return nil
			}
			return err
		},
	}
}

func checkConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-config",
		Usage: "校验配置并打印生效的策略表",
		Flags: configFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return printPolicies(cmd.Root().Writer, cfg)
		},
	}
}

func printPolicies(w io.Writer, cfg *edgeconf.Config) error {
	res, err := cfg.Resolver()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Table())
}
