package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	"ballotbox/contexts/election-operations/election-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	activePointerKey = "active_election"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the election tables. Safe to call on every start.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&electionModel{},
		&tallyModel{},
		&pointerModel{},
		&outboxModel{},
	)
}

func (r *Repository) SaveElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return err
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":       row.Title,
			"description": row.Description,
			"positions":   row.Positions,
			"status":      row.Status,
			"updated_at":  row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_save_failed", create.Error,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("election_repo_get_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	return row.toEntity()
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	err := r.db.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("election_repo_list_failed", err)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		election, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, election)
	}
	return items, nil
}

// DeleteElection removes the election, its tally row and any active pointer
// in one transaction.
func (r *Repository) DeleteElection(ctx context.Context, electionID string) error {
	electionID = strings.TrimSpace(electionID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", electionID).Delete(&electionModel{})
		if result.Error != nil {
			return r.logError("election_repo_delete_failed", result.Error, "election_id", electionID)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrElectionNotFound
		}
		if err := tx.Where("election_id = ?", electionID).
			Delete(&tallyModel{}).Error; err != nil {
			return err
		}
		return tx.Where("key = ? AND election_id = ?", activePointerKey, electionID).
			Delete(&pointerModel{}).Error
	})
}

func (r *Repository) ActiveElectionID(ctx context.Context) (string, bool, error) {
	var row pointerModel
	err := r.db.WithContext(ctx).
		Where("key = ?", activePointerKey).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, r.logError("election_repo_active_pointer_failed", err)
	}
	if strings.TrimSpace(row.ElectionID) == "" {
		return "", false, nil
	}
	return row.ElectionID, true, nil
}

func (r *Repository) Activate(ctx context.Context, electionID string, now time.Time) (entities.Election, []entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	var activated entities.Election
	var demoted []entities.Election

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target electionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", electionID).
			First(&target).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}
		if target.Status == string(entities.ElectionStatusCompleted) {
			return domainerrors.ErrElectionCompleted
		}

		var active []electionModel
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND id <> ?", string(entities.ElectionStatusActive), electionID).
			Order("id asc").
			Find(&active).
			Error
		if err != nil {
			return err
		}
		for _, row := range active {
			update := tx.Model(&electionModel{}).
				Where("id = ?", row.ID).
				Updates(map[string]any{
					"status":     string(entities.ElectionStatusCompleted),
					"updated_at": now.UTC(),
				})
			if update.Error != nil {
				return update.Error
			}
			row.Status = string(entities.ElectionStatusCompleted)
			row.UpdatedAt = now.UTC()
			election, err := row.toEntity()
			if err != nil {
				return err
			}
			demoted = append(demoted, election)
		}

		update := tx.Model(&electionModel{}).
			Where("id = ?", electionID).
			Updates(map[string]any{
				"status":     string(entities.ElectionStatusActive),
				"updated_at": now.UTC(),
			})
		if update.Error != nil {
			return update.Error
		}
		target.Status = string(entities.ElectionStatusActive)
		target.UpdatedAt = now.UTC()
		activated, err = target.toEntity()
		if err != nil {
			return err
		}

		pointer := pointerModel{
			Key:        activePointerKey,
			ElectionID: electionID,
			UpdatedAt:  now.UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"election_id": pointer.ElectionID,
				"updated_at":  pointer.UpdatedAt,
			}),
		}).Create(&pointer).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) || errors.Is(err, domainerrors.ErrElectionCompleted) {
			return entities.Election{}, nil, err
		}
		return entities.Election{}, nil, r.logError("election_repo_activate_failed", err, "election_id", electionID)
	}
	return activated, demoted, nil
}

func (r *Repository) Complete(ctx context.Context, electionID string, now time.Time) (entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	var completed entities.Election

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target electionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", electionID).
			First(&target).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}
		if target.Status != string(entities.ElectionStatusActive) {
			return domainerrors.ErrElectionNotActive
		}

		update := tx.Model(&electionModel{}).
			Where("id = ?", electionID).
			Updates(map[string]any{
				"status":     string(entities.ElectionStatusCompleted),
				"updated_at": now.UTC(),
			})
		if update.Error != nil {
			return update.Error
		}
		target.Status = string(entities.ElectionStatusCompleted)
		target.UpdatedAt = now.UTC()
		completed, err = target.toEntity()
		if err != nil {
			return err
		}

		return tx.Where("key = ? AND election_id = ?", activePointerKey, electionID).
			Delete(&pointerModel{}).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) || errors.Is(err, domainerrors.ErrElectionNotActive) {
			return entities.Election{}, err
		}
		return entities.Election{}, r.logError("election_repo_complete_failed", err, "election_id", electionID)
	}
	return completed, nil
}

func (r *Repository) GetTally(ctx context.Context, electionID string) (entities.TallyRecord, error) {
	electionID = strings.TrimSpace(electionID)
	var row tallyModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.NewTallyRecord(electionID), nil
		}
		return entities.TallyRecord{}, r.logError("election_repo_get_tally_failed", err, "election_id", electionID)
	}
	return row.toEntity()
}

// UpdateTally serializes concurrent updates per election with a row lock; the
// transformation runs against the committed record and its result replaces it
// in the same transaction.
func (r *Repository) UpdateTally(
	ctx context.Context,
	electionID string,
	fn func(record entities.TallyRecord) (entities.TallyRecord, error),
) (entities.TallyRecord, error) {
	electionID = strings.TrimSpace(electionID)
	var updated entities.TallyRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current := entities.NewTallyRecord(electionID)
		var row tallyModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("election_id = ?", electionID).
			First(&row).
			Error
		switch {
		case err == nil:
			current, err = row.toEntity()
			if err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first vote for this election
		default:
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		saved, err := tallyModelFromEntity(next)
		if err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "election_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"payload":    saved.Payload,
				"updated_at": saved.UpdatedAt,
			}),
		}).Create(&saved).Error; err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.TallyRecord{}, err
		}
		return entities.TallyRecord{}, r.logError("election_repo_update_tally_failed", err, "election_id", electionID)
	}
	return updated, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return nil
		}
		return r.logError("election_repo_append_outbox_failed", create.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at asc, outbox_id asc").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("election_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	timestamp := publishedAt.UTC()
	update := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &timestamp,
		})
	if update.Error != nil {
		return r.logError("election_repo_mark_outbox_failed", update.Error, "outbox_id", strings.TrimSpace(outboxID))
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrStorage
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "election-operations/election-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("postgres repository operation failed", fields...)
	return fmt.Errorf("%w: %v", domainerrors.ErrStorage, err)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type electionModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Title       string    `gorm:"column:title"`
	Description string    `gorm:"column:description"`
	Positions   []byte    `gorm:"column:positions;type:jsonb"`
	Status      string    `gorm:"column:status;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) (electionModel, error) {
	positions, err := json.Marshal(election.Positions)
	if err != nil {
		return electionModel{}, err
	}
	row := electionModel{
		ID:          strings.TrimSpace(election.ElectionID),
		Title:       strings.TrimSpace(election.Title),
		Description: strings.TrimSpace(election.Description),
		Positions:   positions,
		Status:      string(election.Status),
		CreatedAt:   election.CreatedAt.UTC(),
		UpdatedAt:   election.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	var positions []entities.Position
	if len(m.Positions) > 0 {
		if err := json.Unmarshal(m.Positions, &positions); err != nil {
			return entities.Election{}, err
		}
	}
	return entities.Election{
		ElectionID:  m.ID,
		Title:       m.Title,
		Description: m.Description,
		Positions:   positions,
		Status:      entities.ElectionStatus(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}, nil
}

type tallyPayload struct {
	Counts  map[string]map[string]int    `json:"counts"`
	Ballots map[string]map[string]string `json:"ballots"`
}

type tallyModel struct {
	ElectionID string    `gorm:"column:election_id;primaryKey"`
	Payload    []byte    `gorm:"column:payload;type:jsonb"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (tallyModel) TableName() string {
	return "election_tallies"
}

func tallyModelFromEntity(record entities.TallyRecord) (tallyModel, error) {
	payload, err := json.Marshal(tallyPayload{
		Counts:  record.Counts,
		Ballots: record.Ballots,
	})
	if err != nil {
		return tallyModel{}, err
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return tallyModel{
		ElectionID: strings.TrimSpace(record.ElectionID),
		Payload:    payload,
		UpdatedAt:  updatedAt,
	}, nil
}

func (m tallyModel) toEntity() (entities.TallyRecord, error) {
	record := entities.NewTallyRecord(m.ElectionID)
	record.UpdatedAt = m.UpdatedAt.UTC()
	if len(m.Payload) == 0 {
		return record, nil
	}
	var payload tallyPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return entities.TallyRecord{}, err
	}
	if payload.Counts != nil {
		record.Counts = payload.Counts
	}
	if payload.Ballots != nil {
		record.Ballots = payload.Ballots
	}
	return record, nil
}

type pointerModel struct {
	Key        string    `gorm:"column:key;primaryKey"`
	ElectionID string    `gorm:"column:election_id"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (pointerModel) TableName() string {
	return "election_pointers"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isDomainError(err error) bool {
	switch {
	case errors.Is(err, domainerrors.ErrElectionNotFound),
		errors.Is(err, domainerrors.ErrPositionNotFound),
		errors.Is(err, domainerrors.ErrCandidateNotFound),
		errors.Is(err, domainerrors.ErrElectionNotActive),
		errors.Is(err, domainerrors.ErrElectionNotDraft),
		errors.Is(err, domainerrors.ErrElectionCompleted),
		errors.Is(err, domainerrors.ErrInvalidElectionInput):
		return true
	}
	return false
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.TallyRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
