package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotbox/contexts/election-operations/election-engine/adapters/memory"
	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
)

func slateElection() entities.Election {
	return entities.Election{
		ElectionID: "election-1",
		Title:      "Student Council 2026",
		Status:     entities.ElectionStatusActive,
		Positions: []entities.Position{
			{
				PositionID: "pos-1",
				Title:      "President",
				Candidates: []entities.Candidate{
					{CandidateID: "cand-a", Name: "Alice"},
					{CandidateID: "cand-b", Name: "Ben"},
				},
			},
		},
	}
}

func tallyWith(counts map[string]int, ballots map[string]string) entities.TallyRecord {
	record := entities.NewTallyRecord("election-1")
	record.Counts["pos-1"] = counts
	record.Ballots["pos-1"] = ballots
	return record
}

func TestComputeResultsRoundsPercentages(t *testing.T) {
	record := tallyWith(
		map[string]int{"cand-a": 2, "cand-b": 1},
		map[string]string{"v1": "cand-a", "v2": "cand-a", "v3": "cand-b"},
	)

	results := ComputeResults(slateElection(), record)
	if len(results.Positions) != 1 {
		t.Fatalf("expected one position, got %d", len(results.Positions))
	}
	position := results.Positions[0]
	if position.TotalVotes != 3 {
		t.Fatalf("expected 3 total votes, got %d", position.TotalVotes)
	}
	if position.Candidates[0].Percentage != 67 {
		t.Fatalf("expected 67%% for cand-a, got %d", position.Candidates[0].Percentage)
	}
	if position.Candidates[1].Percentage != 33 {
		t.Fatalf("expected 33%% for cand-b, got %d", position.Candidates[1].Percentage)
	}

	leader, ok := LeadingCandidate(position)
	if !ok || leader.CandidateID != "cand-a" {
		t.Fatalf("expected cand-a leading, got %+v ok=%v", leader, ok)
	}
}

func TestComputeResultsWithoutVotes(t *testing.T) {
	results := ComputeResults(slateElection(), entities.NewTallyRecord("election-1"))

	position := results.Positions[0]
	if position.TotalVotes != 0 {
		t.Fatalf("expected no votes, got %d", position.TotalVotes)
	}
	for _, candidate := range position.Candidates {
		if candidate.Percentage != 0 {
			t.Fatalf("expected 0%% with no votes, got %d", candidate.Percentage)
		}
	}
	if _, ok := LeadingCandidate(position); ok {
		t.Fatalf("expected no leader without votes")
	}
}

func TestLeadingCandidateTieKeepsSlateOrder(t *testing.T) {
	record := tallyWith(
		map[string]int{"cand-a": 1, "cand-b": 1},
		map[string]string{"v1": "cand-a", "v2": "cand-b"},
	)

	position := ComputeResults(slateElection(), record).Positions[0]
	leader, ok := LeadingCandidate(position)
	if !ok {
		t.Fatalf("expected a leader on a tie")
	}
	if leader.CandidateID != "cand-a" {
		t.Fatalf("expected earlier candidate to keep the lead, got %s", leader.CandidateID)
	}
}

func TestElectionResultsAgainstStore(t *testing.T) {
	store := memory.NewStore([]entities.Election{slateElection()})
	uc := ResultsUseCase{Elections: store, Tallies: store, Clock: store}

	_, err := store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Counts["pos-1"] = map[string]int{"cand-a": 2, "cand-b": 1}
		record.Ballots["pos-1"] = map[string]string{"v1": "cand-a", "v2": "cand-a", "v3": "cand-b"}
		return record, nil
	})
	if err != nil {
		t.Fatalf("seed tally failed: %v", err)
	}

	results, err := uc.ElectionResults(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.Positions[0].TotalVotes != 3 {
		t.Fatalf("expected 3 votes, got %d", results.Positions[0].TotalVotes)
	}
	if results.ComputedAt.IsZero() {
		t.Fatalf("expected computed_at stamp")
	}

	if _, err := uc.ElectionResults(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestElectionResultsRefreshAfterTallyWrite(t *testing.T) {
	store := memory.NewStore([]entities.Election{slateElection()})
	uc := ResultsUseCase{Elections: store, Tallies: store, Cache: store, Clock: store}

	_, err := store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Counts["pos-1"] = map[string]int{"cand-a": 1}
		record.Ballots["pos-1"] = map[string]string{"v1": "cand-a"}
		record.UpdatedAt = time.Now().UTC()
		return record, nil
	})
	if err != nil {
		t.Fatalf("seed tally failed: %v", err)
	}

	stale, err := uc.ElectionResults(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("warm results failed: %v", err)
	}
	if err := store.PutResults(context.Background(), stale); err != nil {
		t.Fatalf("cache snapshot failed: %v", err)
	}

	// The snapshot in the cache now predates this write.
	_, err = store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Counts["pos-1"]["cand-b"] = 1
		record.Ballots["pos-1"]["v2"] = "cand-b"
		record.UpdatedAt = time.Now().UTC().Add(time.Second)
		return record, nil
	})
	if err != nil {
		t.Fatalf("second vote failed: %v", err)
	}

	results, err := uc.ElectionResults(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.Positions[0].TotalVotes != 2 {
		t.Fatalf("read after completed write returned stale snapshot: total_votes=%d, want 2", results.Positions[0].TotalVotes)
	}
}

func TestElectionResultsServesSnapshotCoveringTally(t *testing.T) {
	store := memory.NewStore([]entities.Election{slateElection()})
	uc := ResultsUseCase{Elections: store, Tallies: store, Cache: store, Clock: store}

	_, err := store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Counts["pos-1"] = map[string]int{"cand-a": 1}
		record.Ballots["pos-1"] = map[string]string{"v1": "cand-a"}
		record.UpdatedAt = time.Now().UTC()
		return record, nil
	})
	if err != nil {
		t.Fatalf("seed tally failed: %v", err)
	}

	snapshot := ComputeResults(slateElection(), entities.TallyRecord{
		ElectionID: "election-1",
		Counts:     map[string]map[string]int{"pos-1": {"cand-a": 1}},
		Ballots:    map[string]map[string]string{"pos-1": {"v1": "cand-a"}},
	})
	snapshot.ComputedAt = time.Now().UTC().Add(time.Second)
	if err := store.PutResults(context.Background(), snapshot); err != nil {
		t.Fatalf("cache snapshot failed: %v", err)
	}

	results, err := uc.ElectionResults(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if !results.ComputedAt.Equal(snapshot.ComputedAt) {
		t.Fatalf("expected cached snapshot served, got computed_at %v", results.ComputedAt)
	}
}

func TestTurnoutCountsDistinctVoters(t *testing.T) {
	election := slateElection()
	election.Positions = append(election.Positions, entities.Position{
		PositionID: "pos-2",
		Title:      "Treasurer",
		Candidates: []entities.Candidate{{CandidateID: "cand-c", Name: "Cara"}},
	})
	store := memory.NewStore([]entities.Election{election})
	uc := ResultsUseCase{Elections: store, Tallies: store, Clock: store}

	_, err := store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Ballots["pos-1"] = map[string]string{"v1": "cand-a", "v2": "cand-b"}
		record.Ballots["pos-2"] = map[string]string{"v1": "cand-c"}
		record.Counts["pos-1"] = map[string]int{"cand-a": 1, "cand-b": 1}
		record.Counts["pos-2"] = map[string]int{"cand-c": 1}
		return record, nil
	})
	if err != nil {
		t.Fatalf("seed tally failed: %v", err)
	}

	turnout, err := uc.Turnout(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("turnout failed: %v", err)
	}
	if turnout.DistinctVoters != 2 {
		t.Fatalf("expected 2 distinct voters, got %d", turnout.DistinctVoters)
	}
	if turnout.Positions[0].Voters != 2 || turnout.Positions[1].Voters != 1 {
		t.Fatalf("unexpected per-position turnout: %+v", turnout.Positions)
	}
}

func TestActiveElectionQuery(t *testing.T) {
	store := memory.NewStore([]entities.Election{slateElection()})
	uc := ElectionUseCase{Elections: store, Tallies: store}

	active, err := uc.ActiveElection(context.Background())
	if err != nil {
		t.Fatalf("active election failed: %v", err)
	}
	if active.ElectionID != "election-1" {
		t.Fatalf("expected election-1 active, got %s", active.ElectionID)
	}

	empty := memory.NewStore(nil)
	uc = ElectionUseCase{Elections: empty, Tallies: empty}
	if _, err := uc.ActiveElection(context.Background()); !errors.Is(err, domainerrors.ErrNoActiveElection) {
		t.Fatalf("expected no-active error, got %v", err)
	}
}

func TestDashboardStats(t *testing.T) {
	draft := slateElection()
	draft.ElectionID = "election-2"
	draft.Status = entities.ElectionStatusDraft
	done := slateElection()
	done.ElectionID = "election-3"
	done.Status = entities.ElectionStatusCompleted
	store := memory.NewStore([]entities.Election{slateElection(), draft, done})
	uc := ElectionUseCase{Elections: store, Tallies: store}

	_, err := store.UpdateTally(context.Background(), "election-1", func(record entities.TallyRecord) (entities.TallyRecord, error) {
		record.Ballots["pos-1"] = map[string]string{"v1": "cand-a", "v2": "cand-b"}
		record.Counts["pos-1"] = map[string]int{"cand-a": 1, "cand-b": 1}
		return record, nil
	})
	if err != nil {
		t.Fatalf("seed tally failed: %v", err)
	}

	stats, err := uc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("dashboard stats failed: %v", err)
	}
	if stats.TotalElections != 3 || stats.DraftElections != 1 || stats.ActiveElections != 1 || stats.CompletedElections != 1 {
		t.Fatalf("unexpected status counts: %+v", stats)
	}
	if stats.BallotsCast != 2 {
		t.Fatalf("expected 2 ballots cast, got %d", stats.BallotsCast)
	}
}
