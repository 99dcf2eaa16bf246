//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"BreakScan/internal/usecase"
	"BreakScan/pkg/config"
	"BreakScan/pkg/server"
)

var pipelineSet = wire.NewSet(
	// Infrastructure
	ProvideLogger,
	ProvideCalendar,
	ProvideMetrics,
	ProvideCache,
	ProvideStores,
	ProvideSignalPublisher,
	ProvideArchiver,
	ProvideHTTPClient,

	// Use cases
	ProvideSources,
	ProvideInvocationFactory,
	ProvideCaptureUseCase,
	ProvideClassifyUseCase,
	ProvideRolloverUseCase,
	usecase.NewRunner,
)

// InitializeApp wires up all dependencies and returns the HTTP application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		pipelineSet,
		ProvideReplayUseCase,
		ProvideHistoryUseCase,
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeRunner wires the pipeline without the HTTP layer, for one-shot CLI runs.
func InitializeRunner(cfg *config.Config) (*usecase.Runner, func(), error) {
	wire.Build(pipelineSet)
	return nil, nil, nil
}
