package history

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"

	"github.com/locvowork/grid_export_service/internal/logger"
)

const KindExportRecord = "ExportRecord"

const defaultListLimit = 50

// Record is one export audit entry.
type Record struct {
	ID        string        `datastore:"-" json:"id"`
	Grid      string        `datastore:"grid" json:"grid"`
	Format    string        `datastore:"format" json:"format"`
	Filename  string        `datastore:"filename" json:"filename"`
	Rows      int           `datastore:"rows" json:"rows"`
	Bytes     int64         `datastore:"bytes" json:"bytes"`
	Vetoed    bool          `datastore:"vetoed" json:"vetoed"`
	Duration  time.Duration `datastore:"duration_ns" json:"duration_ns"`
	CreatedAt time.Time     `datastore:"created_at" json:"created_at"`
}

// Store persists export audit records in Google Cloud Datastore.
type Store struct {
	ds *datastore.Client
}

// NewStore creates the audit store. The official client picks up
// DATASTORE_EMULATOR_HOST automatically; it is logged for visibility.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if emulatorHost := os.Getenv("DATASTORE_EMULATOR_HOST"); emulatorHost != "" {
		logger.InfoLog(ctx, "Datastore client targeting emulator at %s", emulatorHost)
	}
	ds, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create datastore client: %w", err)
	}
	return &Store{ds: ds}, nil
}

func (s *Store) Close() error {
	return s.ds.Close()
}

// Save writes one record keyed by a fresh uuid.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	key := datastore.NameKey(KindExportRecord, rec.ID, nil)
	if _, err := s.ds.Put(ctx, key, rec); err != nil {
		return fmt.Errorf("save export record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := datastore.NewQuery(KindExportRecord).Order("-created_at").Limit(limit)

	var recs []Record
	keys, err := s.ds.GetAll(ctx, query, &recs)
	if err != nil {
		return nil, fmt.Errorf("list export records: %w", err)
	}
	for i, key := range keys {
		recs[i].ID = key.Name
	}
	return recs, nil
}
