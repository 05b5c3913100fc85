package electionengine

import (
	"log/slog"

	httpadapter "ballotbox/contexts/election-operations/election-engine/adapters/http"
	"ballotbox/contexts/election-operations/election-engine/adapters/memory"
	"ballotbox/contexts/election-operations/election-engine/application/commands"
	"ballotbox/contexts/election-operations/election-engine/application/queries"
	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	"ballotbox/contexts/election-operations/election-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections    ports.ElectionRepository
	Tallies      ports.TallyRepository
	Outbox       ports.OutboxWriter
	ResultsCache ports.ResultsCache
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	lifecycle := commands.LifecycleUseCase{
		Elections: deps.Elections,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	votes := commands.VoteUseCase{
		Elections: deps.Elections,
		Tallies:   deps.Tallies,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	elections := queries.ElectionUseCase{
		Elections: deps.Elections,
		Tallies:   deps.Tallies,
	}
	results := queries.ResultsUseCase{
		Elections: deps.Elections,
		Tallies:   deps.Tallies,
		Cache:     deps.ResultsCache,
		Clock:     deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: lifecycle,
			Votes:     votes,
			Elections: elections,
			Results:   results,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against the in-memory store. Used by
// tests and by local runs without postgres.
func NewInMemoryModule(seed []entities.Election, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Elections: store,
		Tallies:   store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
