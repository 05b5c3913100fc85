package queries

import (
	"context"
	"math"
	"strings"
	"time"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	"ballotbox/contexts/election-operations/election-engine/ports"
)

// ComputeResults derives per-position totals, per-candidate counts and
// percentages from a tally snapshot. Pure; safe to run on every read.
func ComputeResults(election entities.Election, tally entities.TallyRecord) entities.ElectionResults {
	results := entities.ElectionResults{
		ElectionID: election.ElectionID,
		Status:     election.Status,
		Positions:  make([]entities.PositionResult, 0, len(election.Positions)),
	}
	for _, position := range election.Positions {
		counts := tally.PositionCounts(position.PositionID)

		totalVotes := 0
		for _, candidate := range position.Candidates {
			totalVotes += counts[candidate.CandidateID]
		}

		candidates := make([]entities.CandidateResult, 0, len(position.Candidates))
		for _, candidate := range position.Candidates {
			votes := counts[candidate.CandidateID]
			percentage := 0
			if totalVotes > 0 {
				percentage = int(math.Round(float64(votes) / float64(totalVotes) * 100))
			}
			candidates = append(candidates, entities.CandidateResult{
				CandidateID: candidate.CandidateID,
				Name:        candidate.Name,
				Bio:         candidate.Bio,
				Votes:       votes,
				Percentage:  percentage,
			})
		}

		results.Positions = append(results.Positions, entities.PositionResult{
			PositionID: position.PositionID,
			Title:      position.Title,
			TotalVotes: totalVotes,
			Candidates: candidates,
		})
	}
	return results
}

// LeadingCandidate picks the candidate with the strictly highest vote count.
// Ties keep the earlier candidate in slate order; no votes means no leader.
func LeadingCandidate(position entities.PositionResult) (entities.CandidateResult, bool) {
	if position.TotalVotes == 0 || len(position.Candidates) == 0 {
		return entities.CandidateResult{}, false
	}
	leading := position.Candidates[0]
	for _, candidate := range position.Candidates[1:] {
		if candidate.Votes > leading.Votes {
			leading = candidate
		}
	}
	return leading, true
}

// ResultsUseCase serves computed results for dashboards. The projector's
// cached snapshot is used only when it covers the current tally; a read
// issued after a completed vote always reflects that vote.
type ResultsUseCase struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
	Cache     ports.ResultsCache
	Clock     ports.Clock
}

func (uc ResultsUseCase) ElectionResults(ctx context.Context, electionID string) (entities.ElectionResults, error) {
	electionID = strings.TrimSpace(electionID)

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}
	tally, err := uc.Tallies.GetTally(ctx, electionID)
	if err != nil {
		return entities.ElectionResults{}, err
	}

	if uc.Cache != nil {
		cached, found, err := uc.Cache.GetResults(ctx, electionID)
		// A snapshot computed before the latest tally write is stale; fall
		// through and recompute from the record just read.
		if err == nil && found && !cached.ComputedAt.Before(tally.UpdatedAt) {
			return cached, nil
		}
	}

	results := ComputeResults(election, tally)
	results.ComputedAt = uc.now()
	return results, nil
}

// Turnout reports how many distinct voters participated, overall and per
// position, derived from the ballot records.
func (uc ResultsUseCase) Turnout(ctx context.Context, electionID string) (entities.Turnout, error) {
	electionID = strings.TrimSpace(electionID)
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Turnout{}, err
	}
	tally, err := uc.Tallies.GetTally(ctx, electionID)
	if err != nil {
		return entities.Turnout{}, err
	}

	distinct := make(map[string]struct{})
	turnout := entities.Turnout{
		ElectionID: electionID,
		Positions:  make([]entities.PositionTurnout, 0, len(election.Positions)),
	}
	for _, position := range election.Positions {
		ballots := tally.Ballots[position.PositionID]
		for voterID := range ballots {
			distinct[voterID] = struct{}{}
		}
		turnout.Positions = append(turnout.Positions, entities.PositionTurnout{
			PositionID: position.PositionID,
			Title:      position.Title,
			Voters:     len(ballots),
		})
	}
	turnout.DistinctVoters = len(distinct)
	return turnout, nil
}

func (uc ResultsUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
