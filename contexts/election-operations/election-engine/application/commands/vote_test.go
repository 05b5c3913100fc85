package commands

import (
	"context"
	"errors"
	"testing"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	"ballotbox/contexts/election-operations/election-engine/ports"
)

func newVoting(t *testing.T) (VoteUseCase, entities.Election, func() []ports.OutboxMessage) {
	t.Helper()
	lifecycle, store := newLifecycle()
	election, err := lifecycle.CreateElection(context.Background(), boardElection())
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	if _, err := lifecycle.StartElection(context.Background(), election.ElectionID); err != nil {
		t.Fatalf("start election failed: %v", err)
	}
	election, err = store.GetElection(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("reload election failed: %v", err)
	}
	votes := VoteUseCase{
		Elections: store,
		Tallies:   store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
	}
	pending := func() []ports.OutboxMessage {
		items, err := store.ListPendingOutbox(context.Background(), 0)
		if err != nil {
			t.Fatalf("list outbox failed: %v", err)
		}
		return items
	}
	return votes, election, pending
}

func TestCastVoteRecordsBallotAndCount(t *testing.T) {
	votes, election, _ := newVoting(t)
	position := election.Positions[0]
	candidate := position.Candidates[0]

	result, err := votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "voter-1",
		CandidateID: candidate.CandidateID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if result.Replayed || result.Changed {
		t.Fatalf("expected a fresh ballot, got %+v", result)
	}
	if result.PositionCounts[candidate.CandidateID] != 1 {
		t.Fatalf("expected count 1, got %d", result.PositionCounts[candidate.CandidateID])
	}

	record, err := votes.Tally(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	if choice, ok := record.Ballot(position.PositionID, "voter-1"); !ok || choice != candidate.CandidateID {
		t.Fatalf("expected ballot recorded for voter-1, got %q ok=%v", choice, ok)
	}
}

func TestCastVoteSameChoiceIsReplayed(t *testing.T) {
	votes, election, pending := newVoting(t)
	position := election.Positions[0]
	candidate := position.Candidates[0]

	cmd := CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "voter-1",
		CandidateID: candidate.CandidateID,
	}
	if _, err := votes.CastVote(context.Background(), cmd); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	eventsBefore := len(pending())

	replay, err := votes.CastVote(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replayed vote failed: %v", err)
	}
	if !replay.Replayed {
		t.Fatalf("expected replay marker")
	}
	if replay.PositionCounts[candidate.CandidateID] != 1 {
		t.Fatalf("expected count unchanged at 1, got %d", replay.PositionCounts[candidate.CandidateID])
	}
	if len(pending()) != eventsBefore {
		t.Fatalf("expected no new event on replay, got %d before and %d after", eventsBefore, len(pending()))
	}
}

func TestCastVoteOverwritesPreviousChoice(t *testing.T) {
	votes, election, _ := newVoting(t)
	position := election.Positions[0]
	first := position.Candidates[0]
	second := position.Candidates[1]

	if _, err := votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "voter-1",
		CandidateID: first.CandidateID,
	}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}

	result, err := votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "voter-1",
		CandidateID: second.CandidateID,
	})
	if err != nil {
		t.Fatalf("changed vote failed: %v", err)
	}
	if !result.Changed || result.PreviousCandidate != first.CandidateID {
		t.Fatalf("expected changed ballot from %s, got %+v", first.CandidateID, result)
	}
	if result.PositionCounts[first.CandidateID] != 0 {
		t.Fatalf("expected previous candidate decremented to 0, got %d", result.PositionCounts[first.CandidateID])
	}
	if result.PositionCounts[second.CandidateID] != 1 {
		t.Fatalf("expected new candidate at 1, got %d", result.PositionCounts[second.CandidateID])
	}

	record, err := votes.Tally(context.Background(), election.ElectionID)
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	if record.TotalBallots() != 1 {
		t.Fatalf("expected a single ballot after overwrite, got %d", record.TotalBallots())
	}
}

func TestCastVoteRequiresVoterIdentity(t *testing.T) {
	votes, election, _ := newVoting(t)
	position := election.Positions[0]

	_, err := votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "   ",
		CandidateID: position.Candidates[0].CandidateID,
	})
	if !errors.Is(err, domainerrors.ErrVoterRequired) {
		t.Fatalf("expected voter required error, got %v", err)
	}
}

func TestCastVoteRefusedUnlessActive(t *testing.T) {
	lifecycle, store := newLifecycle()
	election, err := lifecycle.CreateElection(context.Background(), boardElection())
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	votes := VoteUseCase{Elections: store, Tallies: store, Clock: store, IDGen: store}

	position := election.Positions[0]
	_, err = votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "voter-1",
		CandidateID: position.Candidates[0].CandidateID,
	})
	if !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected not-active error for draft election, got %v", err)
	}
}

func TestCastVoteUnknownPositionOrCandidate(t *testing.T) {
	votes, election, _ := newVoting(t)
	position := election.Positions[0]

	_, err := votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  "no-such-position",
		VoterID:     "voter-1",
		CandidateID: position.Candidates[0].CandidateID,
	})
	if !errors.Is(err, domainerrors.ErrPositionNotFound) {
		t.Fatalf("expected position not found, got %v", err)
	}

	_, err = votes.CastVote(context.Background(), CastVoteCommand{
		ElectionID:  election.ElectionID,
		PositionID:  position.PositionID,
		VoterID:     "voter-1",
		CandidateID: "no-such-candidate",
	})
	if !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected candidate not found, got %v", err)
	}
}

func TestTallyForMissingElection(t *testing.T) {
	votes, _, _ := newVoting(t)
	if _, err := votes.Tally(context.Background(), "no-such-election"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
