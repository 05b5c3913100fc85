package entities

import "time"

// TallyRecord is the single mutable record per election holding both the
// per-candidate counts and the per-voter ballots. Counts and ballots move
// together: counts[position] always sums to len(ballots[position]).
type TallyRecord struct {
	ElectionID string
	// positionID -> candidateID -> count
	Counts map[string]map[string]int
	// positionID -> voterID -> candidateID
	Ballots   map[string]map[string]string
	UpdatedAt time.Time
}

func NewTallyRecord(electionID string) TallyRecord {
	return TallyRecord{
		ElectionID: electionID,
		Counts:     make(map[string]map[string]int),
		Ballots:    make(map[string]map[string]string),
	}
}

// Clone deep-copies the record so update closures can fail without leaving a
// partially mutated value behind.
func (t TallyRecord) Clone() TallyRecord {
	copied := TallyRecord{
		ElectionID: t.ElectionID,
		Counts:     make(map[string]map[string]int, len(t.Counts)),
		Ballots:    make(map[string]map[string]string, len(t.Ballots)),
		UpdatedAt:  t.UpdatedAt,
	}
	for positionID, counts := range t.Counts {
		inner := make(map[string]int, len(counts))
		for candidateID, count := range counts {
			inner[candidateID] = count
		}
		copied.Counts[positionID] = inner
	}
	for positionID, ballots := range t.Ballots {
		inner := make(map[string]string, len(ballots))
		for voterID, candidateID := range ballots {
			inner[voterID] = candidateID
		}
		copied.Ballots[positionID] = inner
	}
	return copied
}

// PositionCounts returns the counts for one position, never nil.
func (t TallyRecord) PositionCounts(positionID string) map[string]int {
	counts, ok := t.Counts[positionID]
	if !ok {
		return map[string]int{}
	}
	return counts
}

// Ballot returns the candidate a voter already chose for a position, if any.
func (t TallyRecord) Ballot(positionID string, voterID string) (string, bool) {
	ballots, ok := t.Ballots[positionID]
	if !ok {
		return "", false
	}
	candidateID, ok := ballots[voterID]
	return candidateID, ok
}

// TotalBallots counts every recorded ballot across all positions.
func (t TallyRecord) TotalBallots() int {
	total := 0
	for _, ballots := range t.Ballots {
		total += len(ballots)
	}
	return total
}

type CandidateResult struct {
	CandidateID string
	Name        string
	Bio         string
	Votes       int
	Percentage  int
}

type PositionResult struct {
	PositionID string
	Title      string
	TotalVotes int
	Candidates []CandidateResult
}

type ElectionResults struct {
	ElectionID string
	Status     ElectionStatus
	Positions  []PositionResult
	ComputedAt time.Time
}

type PositionTurnout struct {
	PositionID string
	Title      string
	Voters     int
}

type Turnout struct {
	ElectionID     string
	DistinctVoters int
	Positions      []PositionTurnout
}

type DashboardStats struct {
	TotalElections     int
	DraftElections     int
	ActiveElections    int
	CompletedElections int
	BallotsCast        int
}
