package di

import (
	"context"
	"fmt"
	"time"

	"BluffScan/internal/domain/repository"
	"BluffScan/internal/handler/api"
	mid "BluffScan/internal/middleware"
	internalrepo "BluffScan/internal/repository"
	icache "BluffScan/internal/service/cache"
	"BluffScan/internal/service/marketdata"
	"BluffScan/internal/service/ratelimit"
	"BluffScan/internal/service/universe"
	"BluffScan/internal/usecase"
	pkgcache "BluffScan/pkg/cache"
	pkgch "BluffScan/pkg/clickhouse"
	"BluffScan/pkg/config"
	xhttp "BluffScan/pkg/http"
	pkgkafka "BluffScan/pkg/kafka"
	applogger "BluffScan/pkg/logger"
	"BluffScan/pkg/metrics"
	"BluffScan/pkg/queue"
	"BluffScan/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache creates the shared Redis cache client.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, port := splitHostPort(cfg.Redis.Addr)
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("bluffscan"),
	)
}

// ProvideCacheService creates the layered (memory + Redis) cache.
func ProvideCacheService(redisCache *pkgcache.RedisCache) pkgcache.Service {
	return pkgcache.NewLayeredCache(redisCache, pkgcache.WithLayeredMemorySize(2000))
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend.
// Returns nil when ClickHouse is written directly.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRunStore creates the ClickHouse run store.
func ProvideRunStore(chClient *pkgch.Client, logger *applogger.Logger) repository.RunStore {
	store := internalrepo.NewClickHouseRunStore(chClient)
	store.SetLogger(logger)
	return store
}

// ProvideRunPublisher creates the Kafka run publisher (nil producer yields a
// nil publisher; the recorder only touches it with the kafka backend).
func ProvideRunPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.RunPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaRunPublisher(producer, cfg.Kafka.Topic)
}

// ProvideFeed creates the market-data feed.
func ProvideFeed(cfg *config.Config, cacheSvc pkgcache.Service, m repository.Metrics, logger *applogger.Logger) *marketdata.Finnhub {
	timeout := cfg.MarketData.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return marketdata.New(
		marketdata.Config{
			BaseURL:          cfg.MarketData.BaseURL,
			APIKey:           cfg.MarketData.APIKey,
			IndexSymbol:      cfg.MarketData.IndexSymbol,
			RateCapacity:     cfg.MarketData.RateCapacity,
			RateRefillPerSec: cfg.MarketData.RateRefillPerSec,
			BarsCacheTTL:     cfg.MarketData.BarsCacheTTL,
			CapCacheTTL:      cfg.MarketData.CapCacheTTL,
		},
		xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cacheSvc,
		ratelimit.New(),
		m,
		logger,
	)
}

// ProvideMarketData exposes the feed through its capability interface.
func ProvideMarketData(feed *marketdata.Finnhub) repository.MarketData { return feed }

// ProvideTickerDirectory exposes the feed's search/membership interface.
func ProvideTickerDirectory(feed *marketdata.Finnhub) repository.TickerDirectory { return feed }

// ProvideUniverseResolver creates the default-universe resolver.
func ProvideUniverseResolver(cfg *config.Config, directory repository.TickerDirectory, cacheSvc pkgcache.Service, logger *applogger.Logger) repository.UniverseResolver {
	return universe.NewResolver(directory, cacheSvc, universe.Config{
		Size:         cfg.Universe.Size,
		SnapshotPath: cfg.Universe.SnapshotPath,
		CacheTTL:     cfg.Universe.CacheTTL,
	}, logger)
}

// ProvideAnalyzer creates the run analyzer and its per-ticker evaluator.
func ProvideAnalyzer(
	feed repository.MarketData,
	uni repository.UniverseResolver,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.RunAnalyzer {
	evaluator := usecase.NewTickerEvaluator(feed, logger)
	return usecase.NewRunAnalyzer(feed, uni, evaluator, m, logger, usecase.RunAnalyzerConfig{
		Workers:          cfg.Analysis.Workers,
		BetaLookbackDays: cfg.Analysis.BetaLookbackDays,
	})
}

// ProvideRecorder creates the backend-routing run recorder.
func ProvideRecorder(pub repository.RunPublisher, store repository.RunStore, m repository.Metrics, cfg *config.Config) *usecase.RunRecorder {
	return usecase.NewRunRecorder(pub, store, m, cfg.Backend.Type)
}

// ProvidePipeline wraps the recorder with the buffering record pipeline.
func ProvidePipeline(recorder *usecase.RunRecorder, m repository.Metrics) *mid.RecordPipeline {
	return mid.NewRecordPipeline(recorder, m, mid.WithBufferSize(512))
}

// ProvideProgressHub creates the WebSocket progress hub.
func ProvideProgressHub() *api.ProgressHub {
	return api.NewProgressHub()
}

// ProvideJobQueue creates the Redis-backed async job queue with the analyze
// job registered.
func ProvideJobQueue(
	cfg *config.Config,
	logger *applogger.Logger,
	redisCache *pkgcache.RedisCache,
	analyzer *usecase.RunAnalyzer,
	pipeline *mid.RecordPipeline,
	hub *api.ProgressHub,
) *queue.RedisQueue {
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Analysis.Queue.Workers,
		RetryLimit: cfg.Analysis.Queue.RetryLimit,
		RetryDelay: cfg.Analysis.Queue.RetryDelay,
	}
	q := queue.NewRedisQueue(logger, qcfg, redisCache.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix("bluffscan:queue"))
	q.RegisterJob(usecase.NewAnalyzeJob(analyzer, pipeline, hub, logger, cfg.Analysis.JobTimeout))
	return q
}

// ProvideKafkaConsumer creates a Kafka consumer for the kafka backend.
// Returns nil with the clickhouse backend.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRunEventsHandler registers the handler persisting consumed runs.
func ProvideRunEventsHandler(store repository.RunStore, m repository.Metrics, cfg *config.Config) *usecase.RunEventsHandler {
	return usecase.NewRunEventsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideAPIHandler creates the Echo API handler.
func ProvideAPIHandler(
	logger *applogger.Logger,
	analyzer *usecase.RunAnalyzer,
	recorder *usecase.RunRecorder,
	pipeline *mid.RecordPipeline,
	jobs *queue.RedisQueue,
	uni repository.UniverseResolver,
	hub *api.ProgressHub,
) xhttp.Handler {
	h := api.NewAnalysisEchoHandler(logger, analyzer, recorder, pipeline, jobs, uni, hub)
	h.SetCache(icache.NewTTLCache())
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh *usecase.RunEventsHandler,
	jobs *queue.RedisQueue,
	pipeline *mid.RecordPipeline,
	recorder *usecase.RunRecorder,
	chClient *pkgch.Client,
) *server.App {
	var mh pkgkafka.MessageHandler
	if consumer != nil {
		mh = kh
	}
	return server.New(cfg, logger, handler, consumer, mh, jobs, pipeline, recorder, chClient)
}

func splitHostPort(addr string) (string, int) {
	host, port := "localhost", 6379
	if addr == "" {
		return host, port
	}
	if i := lastColon(addr); i >= 0 {
		host = addr[:i]
		if p, ok := atoiOK(addr[i+1:]); ok {
			port = p
		}
	} else {
		host = addr
	}
	return host, port
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

func atoiOK(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
