package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nas-collector/config"
	"nas-collector/db"
	"nas-collector/lib"
	model_snmp "nas-collector/models/snmp"
	"nas-collector/pkg/aggregator"
	"nas-collector/pkg/disk"
	"nas-collector/pkg/dsm"
	"nas-collector/pkg/logger"
	"nas-collector/pkg/rabbitmq"
	"nas-collector/pkg/sink"
	"nas-collector/util"
)

func main() {
	run()
}

func run() {
	cfg, err := config.Load()
	logger.ExitIfErr(err, "invalid configuration")
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, closeSinks := buildSinks(cfg)
	defer closeSinks()
	dispatcher := sink.NewDispatcher(sinks...)
	logger.Info().
		Strs("sinks", dispatcher.Names()).
		Dur("interval", cfg.Interval()).
		Str("timezone", cfg.Timezone).
		Msg("collector starting")

	collector := &lib.Collector{
		Vendor: dsm.NewClient(dsm.Credentials{
			Host:     cfg.DSMHost,
			Account:  cfg.DSMUsername,
			Password: cfg.DSMPassword,
		}, cfg.Timeout()),
		Disks: disk.NewDiskCollector(model_snmp.SNMPConnectionConfig{
			Target:   cfg.SNMPHost,
			Port:     cfg.SNMPPort,
			Username: cfg.SNMPUsername,
			AuthKey:  cfg.SNMPPassword,
		}, cfg.Timeout()),
		Aggregator: aggregator.NewAggregator(cfg.Location),
		Dispatcher: dispatcher,
		Interval:   cfg.Interval(),
	}
	collector.Run(ctx)
}

// buildSinks returns the enabled sinks and a func releasing their connections.
func buildSinks(cfg *config.Config) ([]sink.Sink, func()) {
	var closers []func() error
	sinks := []sink.Sink{sink.NewJSONBinSink(cfg.JSONBinServer, cfg.JSONSecret, cfg.Timeout())}

	if cfg.InfluxEnabled {
		sinks = append(sinks, sink.NewInfluxSink(sink.InfluxConfig{
			URL:         cfg.InfluxURL,
			Token:       cfg.InfluxToken,
			Org:         cfg.InfluxOrg,
			Bucket:      cfg.InfluxBucket,
			Measurement: cfg.InfluxMeasurement,
			HostTag:     cfg.InfluxHostTag,
		}, cfg.Timeout()))
	}

	if cfg.RedisEnabled {
		client := db.NewRedisConnection(db.RedisConfig{
			Network:  cfg.RedisNetwork,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.Timeout(),
		})
		closers = append(closers, client.Close)
		sinks = append(sinks, sink.NewRedisSink(client, cfg.RedisKey, 2*cfg.Interval()+time.Minute))
	}

	if cfg.RabbitMQEnabled {
		publisher := rabbitmq.NewPublisher(rabbitmq.Config{
			Url:     cfg.RabbitMQDSN(),
			Queue:   cfg.RabbitMQQueue,
			Timeout: cfg.Timeout(),
		})
		closers = append(closers, publisher.Close)
		sinks = append(sinks, sink.NewRabbitMQSink(publisher))
	}

	return sinks, func() {
		for _, closer := range closers {
			util.FailOnError(closer(), "close sink")
		}
	}
}
