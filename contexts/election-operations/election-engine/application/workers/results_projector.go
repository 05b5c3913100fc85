package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/election-operations/election-engine/application"
	"ballotbox/contexts/election-operations/election-engine/application/queries"
	"ballotbox/contexts/election-operations/election-engine/ports"
	"ballotbox/internal/shared/events"
)

// ResultsProjector keeps a precomputed results snapshot warm for live views.
// It consumes vote events from the bus and refreshes the cache; observers that
// missed a push still get correct data because reads recompute on cache miss.
type ResultsProjector struct {
	Subscriber    ports.EventSubscriber
	Elections     ports.ElectionRepository
	Tallies       ports.TallyRepository
	Cache         ports.ResultsCache
	Clock         ports.Clock
	ConsumerGroup string
	Logger        *slog.Logger
}

func (p ResultsProjector) Start(ctx context.Context) error {
	group := p.ConsumerGroup
	if group == "" {
		group = "election-results-projector-cg"
	}
	return p.Subscriber.Subscribe(ctx, events.TypeVoteRecorded, group, p.handle)
}

func (p ResultsProjector) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(p.Logger)

	electionID := strings.TrimSpace(event.PartitionKey)
	if electionID == "" {
		logger.Warn("vote event without election id",
			"event", "election_projector_missing_key",
			"module", "election-operations/election-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	if err := p.Refresh(ctx, electionID); err != nil {
		logger.Error("results refresh failed",
			"event", "election_projector_refresh_failed",
			"module", "election-operations/election-engine",
			"layer", "worker",
			"election_id", electionID,
			"error", err.Error(),
		)
		return err
	}

	logger.Debug("results snapshot refreshed",
		"event", "election_projector_refreshed",
		"module", "election-operations/election-engine",
		"layer", "worker",
		"election_id", electionID,
	)
	return nil
}

// Refresh recomputes results from the current tally and stores the snapshot.
func (p ResultsProjector) Refresh(ctx context.Context, electionID string) error {
	if p.Cache == nil {
		return nil
	}
	election, err := p.Elections.GetElection(ctx, electionID)
	if err != nil {
		return err
	}
	tally, err := p.Tallies.GetTally(ctx, electionID)
	if err != nil {
		return err
	}

	results := queries.ComputeResults(election, tally)
	results.ComputedAt = p.now()
	return p.Cache.PutResults(ctx, results)
}

func (p ResultsProjector) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now().UTC()
}
