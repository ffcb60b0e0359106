package journal

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"kernelactivity/gateway/internal/activity"
	dbmodel "kernelactivity/gateway/internal/db"
)

// Entry is the journaled terminal state of a removed kernel.
type Entry struct {
	KernelID    string          `json:"kernel_id"`
	SpecName    string          `json:"spec_name"`
	Final       activity.Record `json:"final"`
	Connections int             `json:"connections"`
	StartedAt   time.Time       `json:"started_at"`
	RemovedAt   time.Time       `json:"removed_at"`
}

// Store is a write-behind audit trail for removed kernels. The live
// activity registry stays purely in-memory; the store only sees final
// records at removal time.
type Store struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// NewStore uses the shared gateway DB. Caller must not close the db.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db, nowFunc: time.Now}, nil
}

// RecordRemoval journals the final activity record of a removed kernel.
func (s *Store) RecordRemoval(kernelID, specName string, final activity.Record, startedAt time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("journal store is not initialized")
	}
	id := strings.TrimSpace(kernelID)
	if id == "" {
		return errors.New("kernel id is required")
	}

	finalJSON, err := json.Marshal(final)
	if err != nil {
		return err
	}
	connections := 0
	if n, ok := final[activity.Connections].(int); ok {
		connections = n
	}

	row := dbmodel.ActivityJournalEntry{
		KernelID:    id,
		SpecName:    strings.TrimSpace(specName),
		FinalJSON:   string(finalJSON),
		Connections: connections,
		StartedAt:   startedAt.UTC().Unix(),
		RemovedAt:   s.nowFunc().UTC().Unix(),
	}
	return s.db.Create(&row).Error
}

// List returns the most recently removed kernels first.
func (s *Store) List(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal store is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows := make([]dbmodel.ActivityJournalEntry, 0, limit)
	if err := s.db.Order("removed_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		final := activity.Record{}
		if row.FinalJSON != "" {
			if err := json.Unmarshal([]byte(row.FinalJSON), &final); err != nil {
				return nil, err
			}
		}
		entries = append(entries, Entry{
			KernelID:    row.KernelID,
			SpecName:    row.SpecName,
			Final:       final,
			Connections: row.Connections,
			StartedAt:   time.Unix(row.StartedAt, 0).UTC(),
			RemovedAt:   time.Unix(row.RemovedAt, 0).UTC(),
		})
	}
	return entries, nil
}

// Clear drops all journal entries.
func (s *Store) Clear() error {
	if s == nil || s.db == nil {
		return errors.New("journal store is not initialized")
	}
	return s.db.Where("1 = 1").Delete(&dbmodel.ActivityJournalEntry{}).Error
}
