package queries

import (
	"context"
	"sort"
	"strings"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	"ballotbox/contexts/election-operations/election-engine/ports"
)

// ElectionUseCase serves the admin read side: listings, single elections, the
// active election and dashboard counters.
type ElectionUseCase struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
}

func (uc ElectionUseCase) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	return uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
}

func (uc ElectionUseCase) ListElections(ctx context.Context) ([]entities.Election, error) {
	elections, err := uc.Elections.ListElections(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(elections, func(i, j int) bool {
		if elections[i].CreatedAt.Equal(elections[j].CreatedAt) {
			return elections[i].ElectionID < elections[j].ElectionID
		}
		return elections[i].CreatedAt.Before(elections[j].CreatedAt)
	})
	return elections, nil
}

func (uc ElectionUseCase) ActiveElection(ctx context.Context) (entities.Election, error) {
	activeID, found, err := uc.Elections.ActiveElectionID(ctx)
	if err != nil {
		return entities.Election{}, err
	}
	if !found {
		return entities.Election{}, domainerrors.ErrNoActiveElection
	}
	return uc.Elections.GetElection(ctx, activeID)
}

func (uc ElectionUseCase) DashboardStats(ctx context.Context) (entities.DashboardStats, error) {
	elections, err := uc.Elections.ListElections(ctx)
	if err != nil {
		return entities.DashboardStats{}, err
	}

	stats := entities.DashboardStats{TotalElections: len(elections)}
	for _, election := range elections {
		switch election.Status {
		case entities.ElectionStatusDraft:
			stats.DraftElections++
		case entities.ElectionStatusActive:
			stats.ActiveElections++
		case entities.ElectionStatusCompleted:
			stats.CompletedElections++
		}
		tally, err := uc.Tallies.GetTally(ctx, election.ElectionID)
		if err != nil {
			return entities.DashboardStats{}, err
		}
		stats.BallotsCast += tally.TotalBallots()
	}
	return stats, nil
}
