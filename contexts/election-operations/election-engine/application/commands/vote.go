package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/election-operations/election-engine/application"
	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	"ballotbox/contexts/election-operations/election-engine/ports"
	"ballotbox/internal/shared/events"
)

type CastVoteCommand struct {
	ElectionID  string
	PositionID  string
	VoterID     string
	CandidateID string
}

// CastVoteResult reports the final ballot state plus replay/change markers
// that the transport layer maps to API semantics.
type CastVoteResult struct {
	ElectionID  string
	PositionID  string
	CandidateID string
	// Replayed is set when the voter resubmitted the same choice; the tally
	// was left untouched.
	Replayed bool
	// Changed is set when the voter switched candidates; the prior choice was
	// decremented before the new one was counted.
	Changed           bool
	PreviousCandidate string
	PositionCounts    map[string]int
}

// VoteUseCase records ballots while holding the one-counted-vote-per-voter
// rule. All ballot bookkeeping for a submission runs inside a single atomic
// tally update so concurrent voters never lose an increment.
type VoteUseCase struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	voterID := strings.TrimSpace(cmd.VoterID)
	if voterID == "" {
		return CastVoteResult{}, domainerrors.ErrVoterRequired
	}

	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return CastVoteResult{}, err
	}
	if election.Status != entities.ElectionStatusActive {
		logger.Warn("vote refused for inactive election",
			"event", "vote_refused_inactive",
			"module", "election-operations/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"status", string(election.Status),
		)
		return CastVoteResult{}, domainerrors.ErrElectionNotActive
	}

	positionID := strings.TrimSpace(cmd.PositionID)
	position, ok := election.Position(positionID)
	if !ok {
		return CastVoteResult{}, domainerrors.ErrPositionNotFound
	}
	candidateID := strings.TrimSpace(cmd.CandidateID)
	if _, ok := position.Candidate(candidateID); !ok {
		return CastVoteResult{}, domainerrors.ErrCandidateNotFound
	}

	now := uc.now()
	result := CastVoteResult{
		ElectionID:  election.ElectionID,
		PositionID:  positionID,
		CandidateID: candidateID,
	}

	record, err := uc.Tallies.UpdateTally(ctx, election.ElectionID, func(record entities.TallyRecord) (entities.TallyRecord, error) {
		previous, voted := record.Ballot(positionID, voterID)
		if voted && previous == candidateID {
			result.Replayed = true
			return record, nil
		}

		if record.Counts[positionID] == nil {
			record.Counts[positionID] = make(map[string]int)
		}
		if record.Ballots[positionID] == nil {
			record.Ballots[positionID] = make(map[string]string)
		}
		if voted {
			result.Changed = true
			result.PreviousCandidate = previous
			if record.Counts[positionID][previous] > 0 {
				record.Counts[positionID][previous]--
			}
		}
		record.Counts[positionID][candidateID]++
		record.Ballots[positionID][voterID] = candidateID
		record.UpdatedAt = now
		return record, nil
	})
	if err != nil {
		return CastVoteResult{}, err
	}
	result.PositionCounts = record.PositionCounts(positionID)

	if result.Replayed {
		logger.Info("vote replayed",
			"event", "vote_replayed",
			"module", "election-operations/election-engine",
			"layer", "application",
			"election_id", election.ElectionID,
			"position_id", positionID,
			"candidate_id", candidateID,
		)
		return result, nil
	}

	if err := uc.appendVoteEvent(ctx, election.ElectionID, positionID, result, now); err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote recorded",
		"event", "vote_recorded",
		"module", "election-operations/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"position_id", positionID,
		"candidate_id", candidateID,
		"changed", result.Changed,
	)
	return result, nil
}

// Tally returns a read-only snapshot of counts and ballots for an election.
func (uc VoteUseCase) Tally(ctx context.Context, electionID string) (entities.TallyRecord, error) {
	if _, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID)); err != nil {
		return entities.TallyRecord{}, err
	}
	return uc.Tallies.GetTally(ctx, strings.TrimSpace(electionID))
}

func (uc VoteUseCase) appendVoteEvent(
	ctx context.Context,
	electionID string,
	positionID string,
	result CastVoteResult,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:      eventID,
		EventType:    events.TypeVoteRecorded,
		PartitionKey: electionID,
		OccurredAt:   occurredAt,
		Payload: map[string]any{
			"election_id":  electionID,
			"position_id":  positionID,
			"candidate_id": result.CandidateID,
			"changed":      result.Changed,
			"counts":       result.PositionCounts,
		},
	})
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
