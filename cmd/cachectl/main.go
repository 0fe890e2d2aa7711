// Command cachectl exercises the cache manager from the shell: it wires the
// configured driver from the environment and runs one operation against it.
//
// Usage:
//
//	cachectl set <key> <value> [ttl]
//	cachectl get <key>
//	cachectl del <key>
//	cachectl flush
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"cache-manager/internal/common/logging"
	"cache-manager/internal/config"
	"cache-manager/internal/drivers"
	"cache-manager/internal/drivers/file"
	"cache-manager/internal/drivers/lru"
	"cache-manager/internal/drivers/memory"
	"cache-manager/internal/drivers/noop"
	"cache-manager/internal/drivers/redis"
	"cache-manager/internal/drivers/sqlite"
	"cache-manager/internal/manager"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(logging.LogConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stderr,
		Prefix: "cachectl",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	logging.SetGlobalLogger(logger)

	if len(os.Args) < 2 {
		usage()
	}

	registry := drivers.NewRegistry()
	registry.Register("memory", memory.GetFactory())
	registry.Register("lru", lru.GetFactory())
	registry.Register("redis", redis.GetFactory())
	registry.Register("file", file.GetFactory())
	registry.Register("sqlite", sqlite.GetFactory())
	registry.Register("noop", noop.GetFactory())

	m := manager.New(manager.Config{
		Default:  cfg.Driver,
		Registry: registry,
		Configs: map[string]drivers.DriverConfig{
			"memory": &memory.Config{MaxSize: cfg.MaxSize},
			"lru":    &lru.Config{Capacity: cfg.LRUCapacity},
			"redis": &redis.Config{
				Address:  cfg.RedisAddress,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				PoolSize: cfg.RedisPoolSize,
			},
			"file":   &file.Config{Directory: cfg.Directory},
			"sqlite": &sqlite.Config{Path: cfg.SQLitePath},
			"noop":   &noop.Config{},
		},
		Options: map[string]drivers.Options{
			cfg.Driver: {DefaultTTL: cfg.TTL, Prefix: cfg.Prefix},
		},
	})

	ctx := context.Background()
	if err := m.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect:", err)
		os.Exit(1)
	}
	defer m.Close(ctx)

	if err := run(ctx, m, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, m *manager.Manager, args []string) error {
	switch args[0] {
	case "set":
		if len(args) < 3 {
			usage()
		}
		ttl := drivers.DefaultTTL
		if len(args) > 3 {
			parsed, err := time.ParseDuration(args[3])
			if err != nil {
				return fmt.Errorf("invalid ttl %q: %w", args[3], err)
			}
			ttl = parsed
		}
		return m.Set(ctx, args[1], args[2], ttl)

	case "get":
		if len(args) < 2 {
			usage()
		}
		value, err := m.Get(ctx, args[1])
		if err != nil {
			return err
		}
		if value == nil {
			fmt.Println("(nil)")
			return nil
		}
		fmt.Println(value)
		return nil

	case "del":
		if len(args) < 2 {
			usage()
		}
		return m.Remove(ctx, args[1])

	case "flush":
		return m.Flush(ctx)

	default:
		usage()
		return nil
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cachectl set <key> <value> [ttl] | get <key> | del <key> | flush")
	os.Exit(2)
}
