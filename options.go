package webhooks

import (
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-webhooks/core"
)

type serviceBuilder struct {
	runtimeConfig     core.Config
	logger            core.Logger
	loggerProvider    core.LoggerProvider
	metricsRecorder   core.MetricsRecorder
	errorFactory      core.ErrorFactory
	errorMapper       core.ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    core.ConfigProvider
	optionsResolver   core.OptionsResolver
	idempotencyStore  core.IdempotencyStore
	dlqStore          core.DLQStore
	handler           Handler
}

type Option func(*serviceBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory core.ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithIdempotencyStore(store core.IdempotencyStore) Option {
	return func(b *serviceBuilder) {
		b.idempotencyStore = store
	}
}

func WithDLQStore(store core.DLQStore) Option {
	return func(b *serviceBuilder) {
		b.dlqStore = store
	}
}

// WithEventHandler installs the default handler used by ProcessEvent and
// Replay when no per-call handler is supplied.
func WithEventHandler(handler Handler) Option {
	return func(b *serviceBuilder) {
		b.handler = handler
	}
}

func defaultServiceBuilder(runtime core.Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("webhooks", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: core.NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     core.DefaultErrorMapper,
		configProvider:  core.NewCfgxConfigProvider(nil),
		optionsResolver: core.GoOptionsResolver{},
	}
}
