package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	"ballotbox/contexts/election-operations/election-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int
	message   ports.OutboxMessage
	published bool
}

type cachedResults struct {
	results  entities.ElectionResults
	cachedAt time.Time
}

// Store is the in-memory implementation of every repository port. Tally
// updates are serialized per election so concurrent CastVote calls for the
// same election never lose an increment.
type Store struct {
	mu sync.RWMutex

	elections map[string]entities.Election
	activeID  string
	tallies   map[string]entities.TallyRecord
	tallyMu   map[string]*sync.Mutex
	outbox    map[string]outboxRecord
	results   map[string]cachedResults
	seq       int

	ResultsTTL time.Duration
}

func NewStore(seed []entities.Election) *Store {
	elections := make(map[string]entities.Election, len(seed))
	activeID := ""
	for _, election := range seed {
		elections[election.ElectionID] = election
		if election.Status == entities.ElectionStatusActive {
			activeID = election.ElectionID
		}
	}
	return &Store{
		elections:  elections,
		activeID:   activeID,
		tallies:    make(map[string]entities.TallyRecord),
		tallyMu:    make(map[string]*sync.Mutex),
		outbox:     make(map[string]outboxRecord),
		results:    make(map[string]cachedResults),
		ResultsTTL: 5 * time.Second,
	}
}

func (s *Store) SaveElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[strings.TrimSpace(election.ElectionID)] = election
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		items = append(items, election)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ElectionID < items[j].ElectionID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// DeleteElection removes the election and its tally together. The tally lock
// is taken first, same order as UpdateTally, so an in-flight vote cannot
// resurrect the record.
func (s *Store) DeleteElection(_ context.Context, electionID string) error {
	electionID = strings.TrimSpace(electionID)
	lock := s.tallyLock(electionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[electionID]; !ok {
		return domainerrors.ErrElectionNotFound
	}
	delete(s.elections, electionID)
	delete(s.tallies, electionID)
	delete(s.results, electionID)
	if s.activeID == electionID {
		s.activeID = ""
	}
	return nil
}

func (s *Store) ActiveElectionID(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return "", false, nil
	}
	return s.activeID, true, nil
}

func (s *Store) Activate(_ context.Context, electionID string, now time.Time) (entities.Election, []entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID = strings.TrimSpace(electionID)
	target, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, nil, domainerrors.ErrElectionNotFound
	}
	if target.Status == entities.ElectionStatusCompleted {
		return entities.Election{}, nil, domainerrors.ErrElectionCompleted
	}

	demoted := make([]entities.Election, 0, 1)
	for key, election := range s.elections {
		if key == electionID || election.Status != entities.ElectionStatusActive {
			continue
		}
		election.Status = entities.ElectionStatusCompleted
		election.UpdatedAt = now.UTC()
		s.elections[key] = election
		demoted = append(demoted, election)
	}
	sort.Slice(demoted, func(i, j int) bool {
		return demoted[i].ElectionID < demoted[j].ElectionID
	})

	target.Status = entities.ElectionStatusActive
	target.UpdatedAt = now.UTC()
	s.elections[electionID] = target
	s.activeID = electionID
	return target, demoted, nil
}

func (s *Store) Complete(_ context.Context, electionID string, now time.Time) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	electionID = strings.TrimSpace(electionID)
	target, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	if target.Status != entities.ElectionStatusActive {
		return entities.Election{}, domainerrors.ErrElectionNotActive
	}

	target.Status = entities.ElectionStatusCompleted
	target.UpdatedAt = now.UTC()
	s.elections[electionID] = target
	if s.activeID == electionID {
		s.activeID = ""
	}
	return target, nil
}

func (s *Store) GetTally(_ context.Context, electionID string) (entities.TallyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	record, ok := s.tallies[electionID]
	if !ok {
		return entities.NewTallyRecord(electionID), nil
	}
	return record.Clone(), nil
}

// UpdateTally runs the transformation under the election's own lock. The
// closure receives a deep copy, so a failing transformation leaves the stored
// record exactly as it was.
func (s *Store) UpdateTally(
	_ context.Context,
	electionID string,
	fn func(record entities.TallyRecord) (entities.TallyRecord, error),
) (entities.TallyRecord, error) {
	electionID = strings.TrimSpace(electionID)
	lock := s.tallyLock(electionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.tallies[electionID]
	s.mu.RUnlock()
	if !ok {
		current = entities.NewTallyRecord(electionID)
	}

	updated, err := fn(current.Clone())
	if err != nil {
		return entities.TallyRecord{}, err
	}

	s.mu.Lock()
	s.tallies[electionID] = updated
	s.mu.Unlock()
	return updated.Clone(), nil
}

func (s *Store) tallyLock(electionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.tallyMu[electionID]
	if !ok {
		lock = &sync.Mutex{}
		s.tallyMu[electionID] = lock
	}
	return lock
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrStorage
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.seq++
	s.outbox[outboxID] = outboxRecord{
		seq: s.seq,
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrStorage
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) PutResults(_ context.Context, results entities.ElectionResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[strings.TrimSpace(results.ElectionID)] = cachedResults{
		results:  results,
		cachedAt: time.Now().UTC(),
	}
	return nil
}

func (s *Store) GetResults(_ context.Context, electionID string) (entities.ElectionResults, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.results[strings.TrimSpace(electionID)]
	if !ok {
		return entities.ElectionResults{}, false, nil
	}
	if s.ResultsTTL > 0 && time.Since(row.cachedAt) > s.ResultsTTL {
		return entities.ElectionResults{}, false, nil
	}
	return row.results, true, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
