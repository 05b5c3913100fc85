package entities

import "time"

type ElectionStatus string

const (
	ElectionStatusDraft     ElectionStatus = "draft"
	ElectionStatusActive    ElectionStatus = "active"
	ElectionStatusCompleted ElectionStatus = "completed"
)

type Candidate struct {
	CandidateID string
	Name        string
	Bio         string
}

type Position struct {
	PositionID  string
	Title       string
	Description string
	Candidates  []Candidate
}

func (p Position) Candidate(candidateID string) (Candidate, bool) {
	for _, candidate := range p.Candidates {
		if candidate.CandidateID == candidateID {
			return candidate, true
		}
	}
	return Candidate{}, false
}

type Election struct {
	ElectionID  string
	Title       string
	Description string
	Positions   []Position
	Status      ElectionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Election) Position(positionID string) (Position, bool) {
	for _, position := range e.Positions {
		if position.PositionID == positionID {
			return position, true
		}
	}
	return Position{}, false
}

// Editable reports whether admin edits to the slate are still allowed.
// Positions and candidates freeze once the election leaves draft.
func (e Election) Editable() bool {
	return e.Status == ElectionStatusDraft
}
