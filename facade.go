package webhooks

import (
	"fmt"

	webhookscommand "github.com/goliatone/go-webhooks/command"
	webhooksquery "github.com/goliatone/go-webhooks/query"
)

// CommandQueryService is the surface the facade wires command and query
// handlers against. *Service satisfies it.
type CommandQueryService interface {
	webhookscommand.MutatingService
	webhooksquery.DLQEntryReader
}

type Commands struct {
	ProcessEvent    *webhookscommand.ProcessEventCommand
	ReplayDLQEntry  *webhookscommand.ReplayDLQEntryCommand
	ResolveDLQEntry *webhookscommand.ResolveDLQEntryCommand
	PurgeExpired    *webhookscommand.PurgeExpiredCommand
}

type Queries struct {
	ListDLQEntries *webhooksquery.ListDLQEntriesQuery
	GetDLQEntry    *webhooksquery.GetDLQEntryQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	dlqReader webhooksquery.DLQEntryReader
}

// WithDLQEntryReader points the queries at a dedicated read model instead of
// the service itself, for deployments that split reads from writes.
func WithDLQEntryReader(reader webhooksquery.DLQEntryReader) FacadeOption {
	return func(options *facadeOptions) {
		options.dlqReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("webhooks: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.dlqReader
	if reader == nil {
		reader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ProcessEvent:    webhookscommand.NewProcessEventCommand(service),
		ReplayDLQEntry:  webhookscommand.NewReplayDLQEntryCommand(service),
		ResolveDLQEntry: webhookscommand.NewResolveDLQEntryCommand(service),
		PurgeExpired:    webhookscommand.NewPurgeExpiredCommand(service),
	}
	facade.queries = Queries{
		ListDLQEntries: webhooksquery.NewListDLQEntriesQuery(reader),
		GetDLQEntry:    webhooksquery.NewGetDLQEntryQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Service)(nil)
