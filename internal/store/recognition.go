package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Recognition is the cached result of recognizing a whole uploaded video.
type Recognition struct {
	ID        string    `json:"id"`
	SHA256    string    `json:"sha256"`
	Filename  string    `json:"filename"`
	Signs     []string  `json:"signs"`
	Sentence  string    `json:"sentence"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecognitionRepository stores recognition results keyed by content hash.
type RecognitionRepository struct {
	db *sql.DB
}

// Recognitions returns the recognition cache repository for this store.
func (s *Store) Recognitions() *RecognitionRepository {
	return &RecognitionRepository{db: s.db}
}

// Create inserts rec, assigning an ID when empty. A second result for the
// same hash replaces the first.
func (r *RecognitionRepository) Create(ctx context.Context, rec *Recognition) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now()

	signs := rec.Signs
	if signs == nil {
		signs = []string{}
	}
	data, err := json.Marshal(signs)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO recognitions (id, sha256, filename, signs, sentence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(sha256) DO UPDATE SET
		   id = excluded.id, filename = excluded.filename, signs = excluded.signs,
		   sentence = excluded.sentence, created_at = excluded.created_at`,
		rec.ID, rec.SHA256, rec.Filename, string(data), rec.Sentence, rec.CreatedAt,
	)
	return err
}

// GetBySHA256 returns the recognition for a content hash, or ErrNotFound.
func (r *RecognitionRepository) GetBySHA256(ctx context.Context, sum string) (*Recognition, error) {
	var (
		rec   Recognition
		signs string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sha256, filename, signs, sentence, created_at FROM recognitions WHERE sha256 = ?`, sum,
	).Scan(&rec.ID, &rec.SHA256, &rec.Filename, &signs, &rec.Sentence, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(signs), &rec.Signs); err != nil {
		return nil, err
	}
	return &rec, nil
}
