package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotbox/contexts/election-operations/election-engine/adapters/memory"
	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	"ballotbox/contexts/election-operations/election-engine/ports"
)

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.fail != nil {
		return p.fail
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, eventIDs ...string) {
	t.Helper()
	for _, eventID := range eventIDs {
		err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:      eventID,
			EventType:    "election.vote_recorded",
			PartitionKey: "election-1",
			OccurredAt:   time.Now().UTC(),
			Payload:      map[string]any{"election_id": "election-1"},
		})
		if err != nil {
			t.Fatalf("append outbox failed: %v", err)
		}
	}
}

func TestOutboxRelayPublishesAndAcks(t *testing.T) {
	store := memory.NewStore(nil)
	publisher := &recordingPublisher{}
	seedOutbox(t, store, "event-1", "event-2")

	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	if publisher.topics[0] != "election.vote_recorded" {
		t.Fatalf("expected event type as topic, got %s", publisher.topics[0])
	}
	if publisher.events[0].EventID != "event-1" {
		t.Fatalf("expected creation order, got %s first", publisher.events[0].EventID)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected all rows acked, got %d pending", len(pending))
	}
}

func TestOutboxRelayRetriesAfterPublishFailure(t *testing.T) {
	store := memory.NewStore(nil)
	publisher := &recordingPublisher{fail: errors.New("bus down")}
	seedOutbox(t, store, "event-1")

	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure surfaced")
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected row kept for retry, got %d pending", len(pending))
	}

	publisher.fail = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry run failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected row acked on retry, got %d pending", len(pending))
	}
}

func TestProjectorRefreshWarmsCache(t *testing.T) {
	election := entities.Election{
		ElectionID: "election-1",
		Status:     entities.ElectionStatusActive,
		Positions: []entities.Position{
			{
				PositionID: "pos-1",
				Title:      "President",
				Candidates: []entities.Candidate{{CandidateID: "cand-a", Name: "Alice"}},
			},
		},
	}
	store := memory.NewStore([]entities.Election{election})
	_, err := store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Counts["pos-1"] = map[string]int{"cand-a": 1}
		record.Ballots["pos-1"] = map[string]string{"v1": "cand-a"}
		return record, nil
	})
	if err != nil {
		t.Fatalf("seed tally failed: %v", err)
	}

	projector := ResultsProjector{Elections: store, Tallies: store, Cache: store, Clock: store}
	if err := projector.Refresh(context.Background(), "election-1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	cached, found, err := store.GetResults(context.Background(), "election-1")
	if err != nil || !found {
		t.Fatalf("expected cached snapshot, found=%v err=%v", found, err)
	}
	if cached.Positions[0].TotalVotes != 1 {
		t.Fatalf("expected 1 vote in snapshot, got %d", cached.Positions[0].TotalVotes)
	}
}
