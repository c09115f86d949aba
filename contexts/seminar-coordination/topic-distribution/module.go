package topicdistribution

import (
	"log/slog"
	"time"

	busadapter "topicdesk/contexts/seminar-coordination/topic-distribution/adapters/bus"
	httpadapter "topicdesk/contexts/seminar-coordination/topic-distribution/adapters/http"
	"topicdesk/contexts/seminar-coordination/topic-distribution/adapters/memory"
	"topicdesk/contexts/seminar-coordination/topic-distribution/adapters/wallclock"
	"topicdesk/contexts/seminar-coordination/topic-distribution/application/commands"
	"topicdesk/contexts/seminar-coordination/topic-distribution/application/queries"
	"topicdesk/contexts/seminar-coordination/topic-distribution/application/timers"
	"topicdesk/contexts/seminar-coordination/topic-distribution/application/workers"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
	"topicdesk/internal/platform/bus"
)

type Module struct {
	Handler  httpadapter.Handler
	Commands commands.UseCase
	Queries  queries.UseCase
	Timers   *timers.Service
	Relay    workers.OutboxRelay
	Store    *memory.Store
}

type Dependencies struct {
	Subjects     ports.SubjectRegistry
	Ledger       ports.RegistrationLedger
	Pending      ports.PendingClaimStore
	Outbox       ports.OutboxRepository
	Publisher    ports.EventPublisher
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	ReminderLead time.Duration
	PendingTTL   time.Duration
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	timerService := timers.NewService(deps.Clock, deps.Logger)
	commandUseCase := commands.UseCase{
		Subjects:     deps.Subjects,
		Ledger:       deps.Ledger,
		Pending:      deps.Pending,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		Timers:       timerService,
		IDGen:        deps.IDGen,
		ReminderLead: deps.ReminderLead,
		PendingTTL:   deps.PendingTTL,
		Logger:       deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Subjects: deps.Subjects,
		Ledger:   deps.Ledger,
		Clock:    deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Distribution: commandUseCase,
			Listings:     queryUseCase,
			Logger:       deps.Logger,
		},
		Commands: commandUseCase,
		Queries:  queryUseCase,
		Timers:   timerService,
		Relay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-memory store, the real
// clock, and the in-process bus. This is the default production wiring and
// the one the tests exercise.
func NewInMemoryModule(eventBus *bus.Bus, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Subjects:  store,
		Ledger:    store,
		Pending:   store,
		Outbox:    store,
		Publisher: busadapter.NewPublisher(eventBus, logger),
		Clock:     wallclock.New(),
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
