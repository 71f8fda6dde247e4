//go:build wireinject
// +build wireinject

package di

import (
	"BluffScan/pkg/config"
	"BluffScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,

		// Market data and universe
		ProvideFeed,
		ProvideMarketData,
		ProvideTickerDirectory,
		ProvideUniverseResolver,

		// Run persistence
		ProvideRunStore,
		ProvideRunPublisher,
		ProvideRecorder,
		ProvidePipeline,
		ProvideRunEventsHandler,

		// Analysis
		ProvideAnalyzer,
		ProvideProgressHub,
		ProvideJobQueue,

		// HTTP surface
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
