package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/audit"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/redis"
)

// configuredSinks builds the sinks enabled in cfg in a fixed order: log,
// kafka, redis, postgres, file. Resources they own are appended to closers.
func (c *Client) configuredSinks(ctx context.Context, cfg config.AuditConfig) ([]audit.Sink, error) {
	var sinks []audit.Sink

	if cfg.Log.Enabled {
		sinks = append(sinks, audit.NewLogSink(c.logger.With("component", "audit-log"), logger.ParseLevel(cfg.Log.Level)))
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		ks := audit.NewKafkaSink(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
		ks.Start(context.WithoutCancel(ctx))
		c.closers = append(c.closers, closer{"kafka producer", producer.Close}, closer{"kafka sink", ks.Close})
		sinks = append(sinks, ks)
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis audit sink: %w", err)
		}
		c.closers = append(c.closers, closer{"redis", rc.Close})
		sinks = append(sinks, audit.NewRedisSink(rc, cfg.Redis.Key, cfg.Redis.MaxLen, cfg.Redis.WriteTimeout))
	}

	if cfg.Postgres.Enabled {
		pc, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres audit sink: %w", err)
		}
		c.closers = append(c.closers, closer{"postgres", pc.Close})
		ps, err := audit.NewPostgresSink(pc, cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := ps.EnsureSchema(schemaCtx); err != nil {
			return nil, fmt.Errorf("postgres audit sink: %w", err)
		}
		sinks = append(sinks, ps)
	}

	if cfg.File.Enabled {
		fs, err := audit.OpenFileSink(cfg.File.Path)
		if err != nil {
			return nil, fmt.Errorf("file audit sink: %w", err)
		}
		c.closers = append(c.closers, closer{"file sink", fs.Close})
		sinks = append(sinks, fs)
	}

	return sinks, nil
}
