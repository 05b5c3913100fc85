package httpadapter

import (
	"context"
	"log/slog"

	"ballotbox/contexts/election-operations/election-engine/application/commands"
	"ballotbox/contexts/election-operations/election-engine/application/queries"
	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	httptransport "ballotbox/contexts/election-operations/election-engine/transport/http"
)

type Handler struct {
	Lifecycle commands.LifecycleUseCase
	Votes     commands.VoteUseCase
	Elections queries.ElectionUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateElectionHandler(ctx context.Context, req httptransport.SaveElectionRequest) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.CreateElection(ctx, commands.CreateElectionCommand{
		Title:       req.Title,
		Description: req.Description,
		Positions:   positionInputs(req.Positions),
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionResponse(election), nil
}

func (h Handler) UpdateElectionHandler(ctx context.Context, electionID string, req httptransport.SaveElectionRequest) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.UpdateElection(ctx, commands.UpdateElectionCommand{
		ElectionID:  electionID,
		Title:       req.Title,
		Description: req.Description,
		Positions:   positionInputs(req.Positions),
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionResponse(election), nil
}

func (h Handler) StartElectionHandler(ctx context.Context, electionID string) (httptransport.StartElectionResponse, error) {
	result, err := h.Lifecycle.StartElection(ctx, electionID)
	if err != nil {
		return httptransport.StartElectionResponse{}, err
	}
	resp := httptransport.StartElectionResponse{
		Election: electionResponse(result.Election),
	}
	for _, demoted := range result.Demoted {
		resp.Demoted = append(resp.Demoted, electionSummary(demoted))
	}
	return resp, nil
}

func (h Handler) EndElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.EndElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionResponse(election), nil
}

func (h Handler) DeleteElectionHandler(ctx context.Context, electionID string) error {
	return h.Lifecycle.DeleteElection(ctx, electionID)
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionResponse, error) {
	election, err := h.Elections.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionResponse(election), nil
}

func (h Handler) ListElectionsHandler(ctx context.Context) (httptransport.ElectionListResponse, error) {
	elections, err := h.Elections.ListElections(ctx)
	if err != nil {
		return httptransport.ElectionListResponse{}, err
	}
	resp := httptransport.ElectionListResponse{
		Items: make([]httptransport.ElectionSummary, 0, len(elections)),
	}
	for _, election := range elections {
		resp.Items = append(resp.Items, electionSummary(election))
	}
	return resp, nil
}

func (h Handler) ActiveElectionHandler(ctx context.Context) (httptransport.ElectionResponse, error) {
	election, err := h.Elections.ActiveElection(ctx)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionResponse(election), nil
}

func (h Handler) CastVoteHandler(ctx context.Context, electionID string, voterID string, req httptransport.CastVoteRequest) (httptransport.CastVoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		ElectionID:  electionID,
		PositionID:  req.PositionID,
		VoterID:     voterID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		ElectionID:        result.ElectionID,
		PositionID:        result.PositionID,
		CandidateID:       result.CandidateID,
		Replayed:          result.Replayed,
		Changed:           result.Changed,
		PreviousCandidate: result.PreviousCandidate,
		PositionCounts:    result.PositionCounts,
	}, nil
}

func (h Handler) TallyHandler(ctx context.Context, electionID string) (httptransport.TallyResponse, error) {
	record, err := h.Votes.Tally(ctx, electionID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		ElectionID: record.ElectionID,
		Counts:     record.Counts,
		UpdatedAt:  record.UpdatedAt,
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID string) (httptransport.ResultsResponse, error) {
	results, err := h.Results.ElectionResults(ctx, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	resp := httptransport.ResultsResponse{
		ElectionID: results.ElectionID,
		Status:     string(results.Status),
		Positions:  make([]httptransport.PositionResultItem, 0, len(results.Positions)),
		ComputedAt: results.ComputedAt,
	}
	for _, position := range results.Positions {
		item := httptransport.PositionResultItem{
			PositionID: position.PositionID,
			Title:      position.Title,
			TotalVotes: position.TotalVotes,
			Candidates: make([]httptransport.CandidateResultItem, 0, len(position.Candidates)),
		}
		for _, candidate := range position.Candidates {
			item.Candidates = append(item.Candidates, candidateResultItem(candidate))
		}
		if leader, ok := queries.LeadingCandidate(position); ok {
			mapped := candidateResultItem(leader)
			item.Leader = &mapped
		}
		resp.Positions = append(resp.Positions, item)
	}
	return resp, nil
}

func (h Handler) TurnoutHandler(ctx context.Context, electionID string) (httptransport.TurnoutResponse, error) {
	turnout, err := h.Results.Turnout(ctx, electionID)
	if err != nil {
		return httptransport.TurnoutResponse{}, err
	}
	resp := httptransport.TurnoutResponse{
		ElectionID:     turnout.ElectionID,
		DistinctVoters: turnout.DistinctVoters,
		Positions:      make([]httptransport.PositionTurnoutItem, 0, len(turnout.Positions)),
	}
	for _, position := range turnout.Positions {
		resp.Positions = append(resp.Positions, httptransport.PositionTurnoutItem{
			PositionID: position.PositionID,
			Title:      position.Title,
			Voters:     position.Voters,
		})
	}
	return resp, nil
}

func (h Handler) DashboardStatsHandler(ctx context.Context) (httptransport.DashboardStatsResponse, error) {
	stats, err := h.Elections.DashboardStats(ctx)
	if err != nil {
		return httptransport.DashboardStatsResponse{}, err
	}
	return httptransport.DashboardStatsResponse{
		TotalElections:     stats.TotalElections,
		DraftElections:     stats.DraftElections,
		ActiveElections:    stats.ActiveElections,
		CompletedElections: stats.CompletedElections,
		BallotsCast:        stats.BallotsCast,
	}, nil
}

func positionInputs(payloads []httptransport.PositionPayload) []commands.PositionInput {
	inputs := make([]commands.PositionInput, 0, len(payloads))
	for _, payload := range payloads {
		candidates := make([]commands.CandidateInput, 0, len(payload.Candidates))
		for _, candidate := range payload.Candidates {
			candidates = append(candidates, commands.CandidateInput{
				CandidateID: candidate.CandidateID,
				Name:        candidate.Name,
				Bio:         candidate.Bio,
			})
		}
		inputs = append(inputs, commands.PositionInput{
			PositionID:  payload.PositionID,
			Title:       payload.Title,
			Description: payload.Description,
			Candidates:  candidates,
		})
	}
	return inputs
}

func electionResponse(election entities.Election) httptransport.ElectionResponse {
	positions := make([]httptransport.PositionPayload, 0, len(election.Positions))
	for _, position := range election.Positions {
		candidates := make([]httptransport.CandidatePayload, 0, len(position.Candidates))
		for _, candidate := range position.Candidates {
			candidates = append(candidates, httptransport.CandidatePayload{
				CandidateID: candidate.CandidateID,
				Name:        candidate.Name,
				Bio:         candidate.Bio,
			})
		}
		positions = append(positions, httptransport.PositionPayload{
			PositionID:  position.PositionID,
			Title:       position.Title,
			Description: position.Description,
			Candidates:  candidates,
		})
	}
	return httptransport.ElectionResponse{
		ElectionID:  election.ElectionID,
		Title:       election.Title,
		Description: election.Description,
		Status:      string(election.Status),
		Positions:   positions,
		CreatedAt:   election.CreatedAt,
		UpdatedAt:   election.UpdatedAt,
	}
}

func electionSummary(election entities.Election) httptransport.ElectionSummary {
	return httptransport.ElectionSummary{
		ElectionID: election.ElectionID,
		Title:      election.Title,
		Status:     string(election.Status),
		Positions:  len(election.Positions),
		CreatedAt:  election.CreatedAt,
	}
}

func candidateResultItem(candidate entities.CandidateResult) httptransport.CandidateResultItem {
	return httptransport.CandidateResultItem{
		CandidateID: candidate.CandidateID,
		Name:        candidate.Name,
		Votes:       candidate.Votes,
		Percentage:  candidate.Percentage,
	}
}
