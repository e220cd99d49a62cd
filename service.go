package webhooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/dlq"
	"github.com/goliatone/go-webhooks/idempotency"
	"github.com/goliatone/go-webhooks/retry"
)

const replaySuccessResolution = "replayed successfully"

type Service struct {
	config            core.Config
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

	guard    *idempotency.Guard
	executor *retry.Executor
	dlq      *dlq.Manager
}

type ServiceDependencies struct {
	Logger            core.Logger
	LoggerProvider    core.LoggerProvider
	MetricsRecorder   core.MetricsRecorder
	ErrorFactory      core.ErrorFactory
	ErrorMapper       core.ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    core.ConfigProvider
	OptionsResolver   core.OptionsResolver
	IdempotencyStore  core.IdempotencyStore
	DLQStore          core.DLQStore
}

func NewService(cfg core.Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("webhooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = core.DefaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.idempotencyStore == nil || builder.dlqStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(core.RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.idempotencyStore == nil {
					builder.idempotencyStore = storeProvider.IdempotencyStore()
				}
				if builder.dlqStore == nil {
					builder.dlqStore = storeProvider.DLQStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(core.StoreProvider); ok {
			if builder.idempotencyStore == nil {
				builder.idempotencyStore = storeProvider.IdempotencyStore()
			}
			if builder.dlqStore == nil {
				builder.dlqStore = storeProvider.DLQStore()
			}
		}
	}
	if builder.idempotencyStore == nil {
		builder.idempotencyStore = core.NewMemoryIdempotencyStore()
	}
	if builder.dlqStore == nil {
		builder.dlqStore = core.NewMemoryDLQStore()
	}

	manager, err := dlq.NewManager(builder.dlqStore, finalConfig, logger)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		idempotencyStore:  builder.idempotencyStore,
		dlqStore:          builder.dlqStore,
		handler:           builder.handler,
		guard:             idempotency.NewGuard(builder.idempotencyStore, logger),
		executor:          retry.NewExecutor(finalConfig.Retry, logger),
		dlq:               manager,
	}, nil
}

func Setup(cfg core.Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper core.ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() core.Config {
	if s == nil {
		return core.Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		IdempotencyStore:  s.idempotencyStore,
		DLQStore:          s.dlqStore,
	}
}

// ProcessEvent runs the event through the pipeline using the handler
// configured with WithEventHandler.
func (s *Service) ProcessEvent(ctx context.Context, event core.WebhookEvent) (ProcessResult, error) {
	if s == nil {
		return ProcessResult{}, fmt.Errorf("webhooks: service is not configured")
	}
	return s.Process(ctx, event, s.handler)
}

// Process runs one webhook event through the full pipeline: idempotency
// check, retried execution, then either the processed marker or a dead
// letter entry. A dead-lettered event returns the terminal error alongside
// the outcome so callers can distinguish it from pipeline failures.
func (s *Service) Process(ctx context.Context, event core.WebhookEvent, handler Handler) (result ProcessResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"tenant_id":  event.TenantID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "process", err, fields)
	}()

	if s == nil {
		err = fmt.Errorf("webhooks: service is not configured")
		return ProcessResult{}, err
	}
	if err = event.Validate(); err != nil {
		err = s.mapError(err)
		return ProcessResult{}, err
	}
	if handler == nil {
		handler = s.handler
	}
	if handler == nil {
		err = s.mapError(fmt.Errorf("webhooks: event handler is required"))
		return ProcessResult{}, err
	}

	if s.guard.IsProcessed(ctx, event.EventID) {
		fields["status_detail"] = ProcessStatusSkippedDuplicate
		result = ProcessResult{Status: ProcessStatusSkippedDuplicate, EventID: event.EventID}
		return result, nil
	}

	outcome := s.executor.Execute(ctx, func(opCtx context.Context) (any, error) {
		return handler(opCtx, event)
	}, core.RunContext{
		CorrelationID: event.EventID,
		EventID:       event.EventID,
		EventType:     event.EventType,
		TenantID:      event.TenantID,
	})

	fields["retry_count"] = outcome.RetryCount

	if outcome.Success {
		s.markProcessed(ctx, event.EventID)
		result = ProcessResult{
			Status:     ProcessStatusProcessed,
			EventID:    event.EventID,
			Result:     outcome.Result,
			RetryCount: outcome.RetryCount,
			History:    outcome.History,
		}
		return result, nil
	}

	entry, dlqErr := s.dlq.Add(ctx, event, outcome.Err, outcome.RetryCount, outcome.History)
	if dlqErr != nil {
		err = s.mapError(dlqErr)
		return ProcessResult{}, err
	}
	fields["dlq_entry_id"] = entry.ID

	result = ProcessResult{
		Status:     ProcessStatusDeadLettered,
		EventID:    event.EventID,
		RetryCount: outcome.RetryCount,
		History:    outcome.History,
		DLQEntryID: entry.ID,
	}
	err = s.terminalFailure(event, outcome)
	return result, err
}

// Replay re-executes a dead-lettered event through the same retry pipeline.
// Success resolves the entry and marks the event processed; another terminal
// failure escalates into a fresh entry so the original claim stays in the
// audit trail.
func (s *Service) Replay(ctx context.Context, entryID string) (result ReplayResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"dlq_entry_id": entryID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "replay", err, fields)
	}()

	if s == nil {
		err = fmt.Errorf("webhooks: service is not configured")
		return ReplayResult{}, err
	}
	if s.handler == nil {
		err = s.mapError(fmt.Errorf("webhooks: event handler is required for replay"))
		return ReplayResult{}, err
	}

	event, found, err := s.dlq.GetForRetry(ctx, entryID)
	if err != nil {
		err = s.mapError(err)
		return ReplayResult{}, err
	}
	if !found {
		err = s.errorFactory(
			fmt.Sprintf("dead letter entry %q not found", entryID),
			goerrors.CategoryNotFound,
		).WithTextCode(core.WebhookErrorEntryNotFound)
		return ReplayResult{}, err
	}

	fields["event_id"] = event.EventID
	fields["event_type"] = event.EventType

	outcome := s.executor.Execute(ctx, func(opCtx context.Context) (any, error) {
		return s.handler(opCtx, event)
	}, core.RunContext{
		CorrelationID: entryID,
		EventID:       event.EventID,
		EventType:     event.EventType,
		TenantID:      event.TenantID,
	})

	fields["retry_count"] = outcome.RetryCount

	if outcome.Success {
		if resolveErr := s.dlq.Resolve(ctx, entryID, replaySuccessResolution); resolveErr != nil {
			err = s.mapError(resolveErr)
			return ReplayResult{}, err
		}
		s.markProcessed(ctx, event.EventID)
		result = ReplayResult{
			EntryID:    entryID,
			EventID:    event.EventID,
			Status:     ReplayStatusReplayed,
			Result:     outcome.Result,
			RetryCount: outcome.RetryCount,
		}
		return result, nil
	}

	newEntry, dlqErr := s.dlq.Add(ctx, event, outcome.Err, outcome.RetryCount, outcome.History)
	if dlqErr != nil {
		err = s.mapError(dlqErr)
		return ReplayResult{}, err
	}
	fields["new_dlq_entry_id"] = newEntry.ID

	result = ReplayResult{
		EntryID:       entryID,
		EventID:       event.EventID,
		Status:        ReplayStatusDeadLettered,
		RetryCount:    outcome.RetryCount,
		NewDLQEntryID: newEntry.ID,
	}
	err = s.terminalFailure(event, outcome)
	return result, err
}

func (s *Service) ListDLQEntries(ctx context.Context, status string, limit int) []core.DLQEntry {
	if s == nil {
		return []core.DLQEntry{}
	}
	return s.dlq.List(ctx, status, limit)
}

func (s *Service) GetDLQEntry(ctx context.Context, entryID string) (core.DLQEntry, bool, error) {
	if s == nil || s.dlqStore == nil {
		return core.DLQEntry{}, false, fmt.Errorf("webhooks: service is not configured")
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return core.DLQEntry{}, false, s.mapError(fmt.Errorf("webhooks: entry id is required"))
	}
	entry, found, err := s.dlqStore.Get(ctx, entryID)
	if err != nil {
		return core.DLQEntry{}, false, s.mapError(err)
	}
	return entry, found, nil
}

func (s *Service) ResolveDLQEntry(ctx context.Context, entryID string, resolution string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"dlq_entry_id": entryID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "resolve", err, fields)
	}()

	if s == nil {
		err = fmt.Errorf("webhooks: service is not configured")
		return err
	}
	if err = s.dlq.Resolve(ctx, entryID, resolution); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) PurgeExpiredDLQEntries(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("webhooks: service is not configured")
	}
	purged, err := s.dlq.PurgeExpired(ctx)
	if err != nil {
		return 0, s.mapError(err)
	}
	return purged, nil
}

func (s *Service) markProcessed(ctx context.Context, eventID string) {
	if s == nil || s.idempotencyStore == nil {
		return
	}
	// At-least-once delivery: a failed marker write means a later duplicate
	// re-runs the handler, it never fails the processed event.
	if err := s.idempotencyStore.MarkProcessed(ctx, eventID); err != nil {
		core.LogWithFields(ctx, s.logger, "warn", "failed to record processed marker", map[string]any{
			"event_id": eventID,
			"error":    err.Error(),
		})
	}
}

func (s *Service) terminalFailure(event core.WebhookEvent, outcome core.RetryOutcome) error {
	message := "webhook processing failed permanently"
	textCode := core.WebhookErrorPermanentFailure
	// The final attempt decides the label: a permanent failure on the last
	// allowed attempt is not an exhaustion.
	if last := len(outcome.History); last > 0 && outcome.History[last-1].Transient {
		message = "webhook processing exhausted all retries"
		textCode = core.WebhookErrorRetryExhausted
	}
	wrapped := s.errorFactory(message, goerrors.CategoryOperation).WithTextCode(textCode)
	return wrapped.WithMetadata(map[string]any{
		"event_id":    event.EventID,
		"event_type":  event.EventType,
		"retry_count": outcome.RetryCount,
		"cause":       causeMessage(outcome.Err),
	})
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func causeMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
