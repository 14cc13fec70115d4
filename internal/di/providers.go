package di

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/domain/repository"
	"SignalForge/internal/fusion"
	"SignalForge/internal/handler/api"
	"SignalForge/internal/indicators"
	mid "SignalForge/internal/middleware"
	internalrepo "SignalForge/internal/repository"
	icache "SignalForge/internal/service/cache"
	"SignalForge/internal/service/marketstream"
	"SignalForge/internal/services/analyzer"
	"SignalForge/internal/services/webhook"
	"SignalForge/internal/settings"
	"SignalForge/internal/strategy"
	"SignalForge/internal/usecase"
	pkgcache "SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/queue"
	"SignalForge/pkg/server"
	"SignalForge/pkg/util"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient creates the shared Redis client.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCacheService creates the cache used for settings and analyzer
// responses. Layers an in-process cache over Redis when Redis is reachable,
// falls back to memory-only otherwise.
func ProvideCacheService(cfg *config.Config, l *applogger.Logger) pkgcache.Service {
	if host, port, err := net.SplitHostPort(cfg.Redis.Addr); err == nil {
		rc, rerr := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(util.ParseIntDefault(port, 6379)),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if rerr == nil {
			return pkgcache.NewLayeredCache(rc)
		}
		if l != nil {
			l.Warn("redis cache unavailable, using in-process cache", applogger.Error(rerr))
		}
	}
	return pkgcache.NewMemoryCache()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// candle schema. Returns nil when the stream backend is selected.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Engine.CandleBackend == "stream" || !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ddl := []string{"CREATE DATABASE IF NOT EXISTS signalforge"}
	for _, tf := range []string{"1m", "5m", "15m", "1h", "4h", "1d"} {
		ddl = append(ddl, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS signalforge.candles_%s (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
			tf,
		))
	}
	if err := client.InitSchema(ctx, ddl); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideCandleBuffer creates the rolling in-memory candle window store.
func ProvideCandleBuffer(cfg *config.Config) *marketstream.CandleBuffer {
	return marketstream.NewCandleBuffer(cfg.Stream.BufferCapacity)
}

// ProvideMarketStream creates the live kline stream when the stream candle
// backend is selected.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	if cfg.Engine.CandleBackend != "stream" {
		return nil
	}
	return marketstream.New(
		cfg.Stream.WebSocketURL,
		cfg.Engine.Symbols,
		cfg.Engine.Timeframes,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		l,
	)
}

// ProvideCandleCollector wires stream -> pipeline -> buffer.
func ProvideCandleCollector(
	stream repository.MarketStream,
	buffer *marketstream.CandleBuffer,
	m repository.Metrics,
) *usecase.CandleCollector {
	if stream == nil {
		return nil
	}
	proc := usecase.NewBufferProc(buffer)
	pipe := mid.NewStreamPipeline(proc, m,
		mid.WithMaxRPS(20),
		mid.WithBufferSize(2000),
	)
	return usecase.NewCandleCollector(stream, proc, m, pipe)
}

// ProvideCandleProvider selects the candle backend.
func ProvideCandleProvider(
	cfg *config.Config,
	chClient *pkgch.Client,
	buffer *marketstream.CandleBuffer,
	l *applogger.Logger,
) (repository.CandleProvider, error) {
	if cfg.Engine.CandleBackend == "stream" {
		return buffer, nil
	}
	if chClient == nil {
		return nil, fmt.Errorf("clickhouse candle backend selected but clickhouse is disabled")
	}
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(l)
	return store, nil
}

// ProvideSettingsStore layers the in-process cache over the Redis-backed
// settings record store.
func ProvideSettingsStore(client *redis.Client, c pkgcache.Service, l *applogger.Logger) repository.SettingsStore {
	inner := internalrepo.NewRedisSettingsStore(client, "signalforge:settings")
	cached := internalrepo.NewCachedSettingsStore(inner, c)
	cached.SetLogger(l)
	return cached
}

// ProvideSymbolUniverse creates the Redis-backed active symbol set.
func ProvideSymbolUniverse(client *redis.Client) repository.SymbolUniverse {
	return internalrepo.NewRedisSymbolUniverse(client, "signalforge:symbols:active")
}

// ProvideAnalyzerSource creates the external analyzer client.
func ProvideAnalyzerSource(cfg *config.Config, c pkgcache.Service, l *applogger.Logger) repository.AnalyzerSource {
	return analyzer.NewClient(cfg.Analyzer, c, l)
}

// ProvideWebhookStore creates the Redis-backed webhook signal store. It is
// both the sink for the Kafka intake and the source read during cycles.
func ProvideWebhookStore(client *redis.Client, l *applogger.Logger) *webhook.Store {
	return webhook.NewStore(client, l)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideRetryQueue creates the Redis-backed retry queue with the signal
// redispatch job registered.
func ProvideRetryQueue(
	cfg *config.Config,
	client *redis.Client,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *queue.RedisQueue {
	job := fusion.NewRedispatchJob(producer, cfg.Kafka.SignalsTopic, l)
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  256,
		RetryLimit: 5,
		RetryDelay: 30 * time.Second,
	}, client, []queue.Job{job})
}

// ProvideDispatcher creates the fusion dispatcher publishing to Kafka.
func ProvideDispatcher(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	retry *queue.RedisQueue,
	l *applogger.Logger,
) repository.Dispatcher {
	return fusion.NewFuser(producer, retry, cfg.Kafka.SignalsTopic, l)
}

// ProvideGenerator creates the strategy signal generator.
func ProvideGenerator(cfg *config.Config, l *applogger.Logger) *strategy.Generator {
	sc := cfg.Strategy
	if len(sc.Timeframes) == 0 {
		sc.Timeframes = cfg.Engine.Timeframes
	}
	return strategy.NewGenerator(sc, indicators.New(), l)
}

// ProvideResolver creates the settings resolution engine.
func ProvideResolver() *settings.Resolver {
	return settings.NewResolver()
}

// ProvideCycleRunner assembles the production loop.
func ProvideCycleRunner(
	cfg *config.Config,
	resolver *settings.Resolver,
	store repository.SettingsStore,
	candles repository.CandleProvider,
	analyzerSrc repository.AnalyzerSource,
	webhooks *webhook.Store,
	universe repository.SymbolUniverse,
	generator *strategy.Generator,
	dispatcher repository.Dispatcher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CycleRunner {
	tfs := make([]repository.Timeframe, 0, len(cfg.Engine.Timeframes))
	for _, tf := range cfg.Engine.Timeframes {
		tfs = append(tfs, repository.NormalizeTimeframe(tf))
	}
	cc := usecase.CycleConfig{
		UserID:       cfg.Engine.UserID,
		Symbols:      cfg.Engine.Symbols,
		Timeframes:   tfs,
		CandleLimit:  cfg.Engine.CandleLimit,
		MinCandles:   cfg.Strategy.MinCandles,
		WebhookLimit: cfg.Engine.WebhookLimit,
		AuxTimeout:   cfg.Engine.AuxTimeout,
	}
	return usecase.NewCycleRunner(cc, usecase.CycleRunnerDeps{
		Resolver:   resolver,
		Store:      store,
		Candles:    candles,
		Analyzer:   analyzerSrc,
		Webhooks:   webhooks,
		Universe:   universe,
		Generator:  generator,
		Dispatcher: dispatcher,
		Metrics:    m,
	}, l)
}

// ProvideKafkaConsumer creates the webhook topic consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
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

// ProvideWebhookIntake registers the TradingView webhook intake handler.
func ProvideWebhookIntake(
	cfg *config.Config,
	sink *webhook.Store,
	m repository.Metrics,
	l *applogger.Logger,
) pkgkafka.MessageHandler {
	return usecase.NewWebhookIntakeHandler(cfg.Kafka.Consumer.WebhookTopic, sink, m, l)
}

// ProvideCandlesUseCase creates the candle read use case for the ops API.
func ProvideCandlesUseCase(candles repository.CandleProvider) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(candles)
}

// ProvideEngineHandler creates the ops HTTP handler.
func ProvideEngineHandler(
	l *applogger.Logger,
	store repository.SettingsStore,
	resolver *settings.Resolver,
	runner *usecase.CycleRunner,
	candles *usecase.CandlesUseCase,
) *api.EngineEchoHandler {
	h := api.NewEngineEchoHandler(l, store, resolver, runner, candles)
	h.SetCache(icache.NewTTLCache())
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.CycleRunner,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	wh pkgkafka.MessageHandler,
	retryQueue *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	handler *api.EngineEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, runner, collector, consumer, wh, retryQueue, producer, chClient, handler)
}
