package http

import "time"

type ErrorResponse struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

type CandidatePayload struct {
	CandidateID string `json:"candidate_id,omitempty"`
	Name        string `json:"name"`
	Bio         string `json:"bio,omitempty"`
}

type PositionPayload struct {
	PositionID  string             `json:"position_id,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Candidates  []CandidatePayload `json:"candidates"`
}

type SaveElectionRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Positions   []PositionPayload `json:"positions"`
}

type ElectionResponse struct {
	ElectionID  string            `json:"election_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Positions   []PositionPayload `json:"positions"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type ElectionSummary struct {
	ElectionID string    `json:"election_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Positions  int       `json:"positions"`
	CreatedAt  time.Time `json:"created_at"`
}

type ElectionListResponse struct {
	Items []ElectionSummary `json:"items"`
}

type StartElectionResponse struct {
	Election ElectionResponse  `json:"election"`
	Demoted  []ElectionSummary `json:"demoted,omitempty"`
}

type CastVoteRequest struct {
	PositionID  string `json:"position_id"`
	CandidateID string `json:"candidate_id"`
}

type CastVoteResponse struct {
	ElectionID        string         `json:"election_id"`
	PositionID        string         `json:"position_id"`
	CandidateID       string         `json:"candidate_id"`
	Replayed          bool           `json:"replayed"`
	Changed           bool           `json:"changed"`
	PreviousCandidate string         `json:"previous_candidate,omitempty"`
	PositionCounts    map[string]int `json:"position_counts"`
}

type TallyResponse struct {
	ElectionID string                    `json:"election_id"`
	Counts     map[string]map[string]int `json:"counts"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

type CandidateResultItem struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Votes       int    `json:"votes"`
	Percentage  int    `json:"percentage"`
}

type PositionResultItem struct {
	PositionID string                `json:"position_id"`
	Title      string                `json:"title"`
	TotalVotes int                   `json:"total_votes"`
	Candidates []CandidateResultItem `json:"candidates"`
	Leader     *CandidateResultItem  `json:"leader,omitempty"`
}

type ResultsResponse struct {
	ElectionID string               `json:"election_id"`
	Status     string               `json:"status"`
	Positions  []PositionResultItem `json:"positions"`
	ComputedAt time.Time            `json:"computed_at"`
}

type PositionTurnoutItem struct {
	PositionID string `json:"position_id"`
	Title      string `json:"title"`
	Voters     int    `json:"voters"`
}

type TurnoutResponse struct {
	ElectionID     string                `json:"election_id"`
	DistinctVoters int                   `json:"distinct_voters"`
	Positions      []PositionTurnoutItem `json:"positions"`
}

type DashboardStatsResponse struct {
	TotalElections     int `json:"total_elections"`
	DraftElections     int `json:"draft_elections"`
	ActiveElections    int `json:"active_elections"`
	CompletedElections int `json:"completed_elections"`
	BallotsCast        int `json:"ballots_cast"`
}
