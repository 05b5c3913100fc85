package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/election-operations/election-engine/application"
	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	"ballotbox/contexts/election-operations/election-engine/ports"
	"ballotbox/internal/shared/events"
)

// CandidateInput and PositionInput are the write-model shapes for the admin
// election builder. IDs may be omitted; fresh ones are assigned on save.
type CandidateInput struct {
	CandidateID string
	Name        string
	Bio         string
}

type PositionInput struct {
	PositionID  string
	Title       string
	Description string
	Candidates  []CandidateInput
}

type CreateElectionCommand struct {
	Title       string
	Description string
	Positions   []PositionInput
}

type UpdateElectionCommand struct {
	ElectionID  string
	Title       string
	Description string
	Positions   []PositionInput
}

type StartElectionResult struct {
	Election entities.Election
	// Demoted lists elections that were active and got completed to uphold
	// the single-active-election rule.
	Demoted []entities.Election
}

// LifecycleUseCase orchestrates election state transitions: draft creation and
// edits, activation with single-active enforcement, completion, and deletion.
type LifecycleUseCase struct {
	Elections ports.ElectionRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc LifecycleUseCase) CreateElection(ctx context.Context, cmd CreateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)

	if err := validateElectionInput(cmd.Title, cmd.Positions); err != nil {
		logger.Warn("election create validation failed",
			"event", "election_create_validation_failed",
			"module", "election-operations/election-engine",
			"layer", "application",
			"title", strings.TrimSpace(cmd.Title),
			"error", err.Error(),
		)
		return entities.Election{}, err
	}

	now := uc.now()
	electionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Election{}, err
	}
	positions, err := uc.buildPositions(ctx, cmd.Positions)
	if err != nil {
		return entities.Election{}, err
	}

	election := entities.Election{
		ElectionID:  electionID,
		Title:       strings.TrimSpace(cmd.Title),
		Description: strings.TrimSpace(cmd.Description),
		Positions:   positions,
		Status:      entities.ElectionStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.Elections.SaveElection(ctx, election); err != nil {
		return entities.Election{}, err
	}
	if err := uc.appendElectionEvent(ctx, events.TypeElectionCreated, election, now, nil); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election created",
		"event", "election_created",
		"module", "election-operations/election-engine",
		"layer", "application",
		"election_id", election.ElectionID,
		"title", election.Title,
		"positions", len(election.Positions),
	)
	return election, nil
}

func (uc LifecycleUseCase) UpdateElection(ctx context.Context, cmd UpdateElectionCommand) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)

	existing, err := uc.Elections.GetElection(ctx, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return entities.Election{}, err
	}
	if !existing.Editable() {
		logger.Warn("election update refused",
			"event", "election_update_refused",
			"module", "election-operations/election-engine",
			"layer", "application",
			"election_id", existing.ElectionID,
			"status", string(existing.Status),
		)
		return entities.Election{}, domainerrors.ErrElectionNotDraft
	}
	if err := validateElectionInput(cmd.Title, cmd.Positions); err != nil {
		return entities.Election{}, err
	}

	positions, err := uc.buildPositions(ctx, cmd.Positions)
	if err != nil {
		return entities.Election{}, err
	}

	now := uc.now()
	existing.Title = strings.TrimSpace(cmd.Title)
	existing.Description = strings.TrimSpace(cmd.Description)
	existing.Positions = positions
	existing.UpdatedAt = now
	if err := uc.Elections.SaveElection(ctx, existing); err != nil {
		return entities.Election{}, err
	}
	if err := uc.appendElectionEvent(ctx, events.TypeElectionUpdated, existing, now, nil); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election updated",
		"event", "election_updated",
		"module", "election-operations/election-engine",
		"layer", "application",
		"election_id", existing.ElectionID,
		"positions", len(existing.Positions),
	)
	return existing, nil
}

// StartElection activates the target election. Any election that is active at
// that moment is completed first, so at most one election accepts votes.
func (uc LifecycleUseCase) StartElection(ctx context.Context, electionID string) (StartElectionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)

	target, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return StartElectionResult{}, err
	}
	switch target.Status {
	case entities.ElectionStatusCompleted:
		return StartElectionResult{}, domainerrors.ErrElectionCompleted
	case entities.ElectionStatusActive:
		// Already running; activation is idempotent.
		return StartElectionResult{Election: target}, nil
	}

	now := uc.now()
	activated, demoted, err := uc.Elections.Activate(ctx, electionID, now)
	if err != nil {
		return StartElectionResult{}, err
	}

	for _, completed := range demoted {
		if err := uc.appendElectionEvent(ctx, events.TypeElectionCompleted, completed, now, map[string]any{
			"reason": "superseded",
		}); err != nil {
			return StartElectionResult{}, err
		}
	}
	if err := uc.appendElectionEvent(ctx, events.TypeElectionStarted, activated, now, nil); err != nil {
		return StartElectionResult{}, err
	}

	logger.Info("election started",
		"event", "election_started",
		"module", "election-operations/election-engine",
		"layer", "application",
		"election_id", activated.ElectionID,
		"demoted_count", len(demoted),
	)
	return StartElectionResult{Election: activated, Demoted: demoted}, nil
}

func (uc LifecycleUseCase) EndElection(ctx context.Context, electionID string) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)

	target, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if target.Status != entities.ElectionStatusActive {
		return entities.Election{}, domainerrors.ErrElectionNotActive
	}

	now := uc.now()
	completed, err := uc.Elections.Complete(ctx, electionID, now)
	if err != nil {
		return entities.Election{}, err
	}
	if err := uc.appendElectionEvent(ctx, events.TypeElectionCompleted, completed, now, nil); err != nil {
		return entities.Election{}, err
	}

	logger.Info("election ended",
		"event", "election_ended",
		"module", "election-operations/election-engine",
		"layer", "application",
		"election_id", completed.ElectionID,
	)
	return completed, nil
}

// DeleteElection removes a non-active election together with its tally and
// ballot records.
func (uc LifecycleUseCase) DeleteElection(ctx context.Context, electionID string) error {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)

	target, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return err
	}
	if target.Status == entities.ElectionStatusActive {
		logger.Warn("election delete refused",
			"event", "election_delete_refused",
			"module", "election-operations/election-engine",
			"layer", "application",
			"election_id", electionID,
		)
		return domainerrors.ErrElectionActive
	}

	if err := uc.Elections.DeleteElection(ctx, electionID); err != nil {
		return err
	}

	now := uc.now()
	if err := uc.appendElectionEvent(ctx, events.TypeElectionDeleted, target, now, nil); err != nil {
		return err
	}

	logger.Info("election deleted",
		"event", "election_deleted",
		"module", "election-operations/election-engine",
		"layer", "application",
		"election_id", electionID,
	)
	return nil
}

func (uc LifecycleUseCase) buildPositions(ctx context.Context, inputs []PositionInput) ([]entities.Position, error) {
	positions := make([]entities.Position, 0, len(inputs))
	for _, input := range inputs {
		positionID := strings.TrimSpace(input.PositionID)
		if positionID == "" {
			fresh, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return nil, err
			}
			positionID = fresh
		}
		candidates := make([]entities.Candidate, 0, len(input.Candidates))
		for _, candidate := range input.Candidates {
			candidateID := strings.TrimSpace(candidate.CandidateID)
			if candidateID == "" {
				fresh, err := uc.IDGen.NewID(ctx)
				if err != nil {
					return nil, err
				}
				candidateID = fresh
			}
			candidates = append(candidates, entities.Candidate{
				CandidateID: candidateID,
				Name:        strings.TrimSpace(candidate.Name),
				Bio:         strings.TrimSpace(candidate.Bio),
			})
		}
		positions = append(positions, entities.Position{
			PositionID:  positionID,
			Title:       strings.TrimSpace(input.Title),
			Description: strings.TrimSpace(input.Description),
			Candidates:  candidates,
		})
	}
	return positions, nil
}

// validateElectionInput collects every violation before failing so admins see
// the whole list at once.
func validateElectionInput(title string, positions []PositionInput) error {
	var violations []string
	if strings.TrimSpace(title) == "" {
		violations = append(violations, "election title must not be empty")
	}
	if len(positions) == 0 {
		violations = append(violations, "election must have at least one position")
	}
	for i, position := range positions {
		if strings.TrimSpace(position.Title) == "" {
			violations = append(violations, fmt.Sprintf("position %d: title must not be empty", i+1))
		}
		if len(position.Candidates) == 0 {
			violations = append(violations, fmt.Sprintf("position %d: at least one candidate is required", i+1))
		}
		seenPositionCandidates := make(map[string]struct{}, len(position.Candidates))
		for j, candidate := range position.Candidates {
			if strings.TrimSpace(candidate.Name) == "" {
				violations = append(violations, fmt.Sprintf("position %d candidate %d: name must not be empty", i+1, j+1))
			}
			candidateID := strings.TrimSpace(candidate.CandidateID)
			if candidateID == "" {
				continue
			}
			if _, dup := seenPositionCandidates[candidateID]; dup {
				violations = append(violations, fmt.Sprintf("position %d: duplicate candidate id %q", i+1, candidateID))
			}
			seenPositionCandidates[candidateID] = struct{}{}
		}
	}
	seenPositions := make(map[string]struct{}, len(positions))
	for i, position := range positions {
		positionID := strings.TrimSpace(position.PositionID)
		if positionID == "" {
			continue
		}
		if _, dup := seenPositions[positionID]; dup {
			violations = append(violations, fmt.Sprintf("position %d: duplicate position id %q", i+1, positionID))
		}
		seenPositions[positionID] = struct{}{}
	}
	return domainerrors.NewValidationError(violations)
}

func (uc LifecycleUseCase) appendElectionEvent(
	ctx context.Context,
	eventType string,
	election entities.Election,
	occurredAt time.Time,
	extra map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"election_id": election.ElectionID,
		"title":       election.Title,
		"status":      string(election.Status),
	}
	for key, value := range extra {
		payload[key] = value
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:      eventID,
		EventType:    eventType,
		PartitionKey: election.ElectionID,
		OccurredAt:   occurredAt,
		Payload:      payload,
	})
}

func (uc LifecycleUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
