//go:build wireinject
// +build wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCacheService,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Candle sources
		ProvideCandleBuffer,
		ProvideMarketStream,
		ProvideCandleCollector,
		ProvideCandleProvider,

		// Signal inputs
		ProvideSettingsStore,
		ProvideSymbolUniverse,
		ProvideAnalyzerSource,
		ProvideWebhookStore,
		ProvideWebhookIntake,

		// Dispatch
		ProvideRetryQueue,
		ProvideDispatcher,

		// Engine
		ProvideResolver,
		ProvideGenerator,
		ProvideCycleRunner,
		ProvideCandlesUseCase,
		ProvideEngineHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
