package ports

import (
	"context"
	"time"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
)

// ElectionRepository owns the durable election records and the single
// active-election pointer. Mutations are atomic at election-id granularity.
type ElectionRepository interface {
	SaveElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
	// DeleteElection removes the election together with its tally and ballot
	// records in one atomic step, so a failure never strands an orphaned
	// tally.
	DeleteElection(ctx context.Context, electionID string) error
	ActiveElectionID(ctx context.Context) (string, bool, error)
	// Activate completes every currently active election, marks the target
	// active and repoints the active pointer, all in one atomic step.
	Activate(ctx context.Context, electionID string, now time.Time) (entities.Election, []entities.Election, error)
	// Complete transitions an active election to completed and clears the
	// active pointer when it referenced that election.
	Complete(ctx context.Context, electionID string, now time.Time) (entities.Election, error)
}

// TallyRepository owns vote counts and ballot records. UpdateTally serializes
// concurrent updates per election: the transformation runs against the current
// record and its result is visible to the next caller, so increments are never
// lost. A failing transformation leaves the stored record untouched.
type TallyRepository interface {
	GetTally(ctx context.Context, electionID string) (entities.TallyRecord, error)
	UpdateTally(
		ctx context.Context,
		electionID string,
		fn func(record entities.TallyRecord) (entities.TallyRecord, error),
	) (entities.TallyRecord, error)
}

type EventEnvelope struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	PartitionKey string    `json:"partition_key"`
	OccurredAt   time.Time `json:"occurred_at"`
	Payload      any       `json:"payload"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter records change events durably alongside the state they
// describe; the relay worker drains them to the bus.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher delivers change events to all subscribed observers.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// ResultsCache holds the latest computed results snapshot for cheap
// dashboard reads. A miss simply means recompute from the tally.
type ResultsCache interface {
	PutResults(ctx context.Context, results entities.ElectionResults) error
	GetResults(ctx context.Context, electionID string) (entities.ElectionResults, bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
