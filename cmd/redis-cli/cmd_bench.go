package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pior/redis"
	"github.com/pior/redis/promexporter"
)

type BenchCommand struct {
	Command     string `enum:"ping,set,get,incr" default:"ping" help:"Command to send (ping, set, get, incr)."`
	Requests    int    `short:"n" default:"100000" help:"Total number of requests."`
	Workers     int    `short:"c" default:"4" help:"Concurrent workers."`
	Pipeline    int    `short:"P" default:"32" help:"Requests in flight per worker."`
	Keyspace    int    `default:"1000" help:"Number of distinct keys."`
	MetricsAddr string `help:"Serve Prometheus metrics on this address while running."`
}

type benchResult struct {
	requests atomic.Int64
	failures atomic.Int64
}

func (c *BenchCommand) Run(ctx context.Context, logger *zap.Logger) error {
	if c.Workers <= 0 || c.Pipeline <= 0 || c.Keyspace <= 0 {
		return errors.New("workers, pipeline and keyspace must be positive")
	}

	client, err := dial(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if c.MetricsAddr != "" {
		exporter := promexporter.NewExporter()
		for i, cl := range client.Clients() {
			exporter.Collector().Add(CLI.Addr[i], cl)
		}

		server := &http.Server{Addr: c.MetricsAddr, Handler: exporter.Handler(), ReadHeaderTimeout: time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer server.Close()
	}

	var result benchResult
	perWorker := c.Requests / c.Workers

	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := range c.Workers {
		g.Go(func() error {
			return c.worker(ctx, client, w, perWorker, &result)
		})
	}
	err = g.Wait()
	elapsed := time.Since(start)

	total := result.requests.Load()
	fmt.Printf("%s %s requests in %s (%s req/s), %s failed\n",
		humanize.Comma(total),
		c.Command,
		elapsed.Round(time.Millisecond),
		humanize.Comma(int64(float64(total)/elapsed.Seconds())),
		humanize.Comma(result.failures.Load()),
	)

	if err != nil {
		return err
	}
	return client.Shutdown(context.Background())
}

func (c *BenchCommand) worker(ctx context.Context, client *redis.Sharded, id, count int, result *benchResult) error {
	window := make([]*redis.Request, 0, c.Pipeline)

	for sent := 0; sent < count; {
		window = window[:0]
		for ; sent < count && len(window) < c.Pipeline; sent++ {
			window = append(window, c.invoke(client, id*count+sent))
		}

		for _, req := range window {
			_, err := req.Wait(ctx)
			result.requests.Add(1)

			switch {
			case err == nil:
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, redis.ErrConnectionClosing), errors.Is(err, redis.ErrConnectionClosed):
				return err
			default:
				result.failures.Add(1)
			}
		}
	}
	return nil
}

func (c *BenchCommand) invoke(client *redis.Sharded, n int) *redis.Request {
	key := "bench:" + strconv.Itoa(n%c.Keyspace)

	switch c.Command {
	case "set":
		return client.Invoke("SET", key, n)
	case "get":
		return client.Invoke("GET", key)
	case "incr":
		return client.Invoke("INCR", key)
	default:
		return client.Invoke("PING")
	}
}
