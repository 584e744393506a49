package audit

import (
	"context"

	"gorm.io/gorm"
)

// Sink receives one Record per analysis attempt.
type Sink interface {
	Record(ctx context.Context, r *Record) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Record, error)
}

// NopSink discards records.
type NopSink struct{}

func (NopSink) Record(context.Context, *Record) error { return nil }

func (NopSink) Recent(context.Context, string, int) ([]Record, error) { return nil, nil }

type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) Record(ctx context.Context, r *Record) error {
	return s.db.WithContext(ctx).Create(r).Error
}

// Recent returns the newest records first. An empty sessionID lists all
// sessions.
func (s *GormSink) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc").Limit(limit)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var out []Record
	err := q.Find(&out).Error
	return out, err
}
