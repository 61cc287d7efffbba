package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/pior/redis"
)

var CLI struct {
	Addr    []string      `short:"a" default:"127.0.0.1:6379" help:"Server addresses, keys are sharded across them."`
	Timeout time.Duration `default:"5s" help:"Dial and command timeout."`
	Verbose bool          `short:"v" help:"Enable debug logs."`

	Exec  ExecCommand  `cmd:"" default:"withargs" help:"Run one command, or start a prompt when no command is given."`
	Bench BenchCommand `cmd:"" help:"Send pipelined commands and report the throughput."`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(
		&CLI,
		kong.Name("redis-cli"),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Tree:    true,
			Compact: true,
		}),
		kong.Description("Pipelined Redis client."),
	)

	logger, err := newLogger(CLI.Verbose)
	kongCtx.FatalIfErrorf(err)
	defer logger.Sync() //nolint:errcheck

	err = kongCtx.Run(logger)
	kongCtx.FatalIfErrorf(err)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return config.Build()
}

func dial(ctx context.Context, logger *zap.Logger) (*redis.Sharded, error) {
	ctx, cancel := context.WithTimeout(ctx, CLI.Timeout)
	defer cancel()

	return redis.DialSharded(ctx, CLI.Addr, redis.Config{
		Logger: logger,
		OnError: func(err error) {
			logger.Error("connection failed", zap.Error(err))
		},
	})
}
