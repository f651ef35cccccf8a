package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/DevinMcDonald/GallupStopMotion/internal/model"
)

// DefaultSession is used when a request carries no session query parameter,
// for compatibility with kiosks that predate session scoping.
const DefaultSession = "_default"

// Store defines the frame manifest operations the API needs. The ordered
// manifest is the authority on capture order; image bytes live on disk.
type Store interface {
	DB() *gorm.DB
	AppendFrame(ctx context.Context, session string) (model.Frame, error)
	DeleteFrame(ctx context.Context, frame model.Frame) error
	DeleteLastFrame(ctx context.Context, session string) (*model.Frame, error)
	DeleteAllFrames(ctx context.Context, session string) ([]model.Frame, error)
	ListFrames(ctx context.Context, session string) ([]model.Frame, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// AppendFrame allocates the next capture index for the session and records
// the frame. Index allocation and insert run in one transaction so two
// concurrent captures cannot claim the same slot.
func (s *gormStore) AppendFrame(ctx context.Context, session string) (model.Frame, error) {
	var frame model.Frame
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxIdx int
		row := tx.Model(&model.Frame{}).
			Where("session_id = ?", session).
			Select("COALESCE(MAX(idx), 0)").
			Row()
		if err := row.Scan(&maxIdx); err != nil {
			return fmt.Errorf("failed to read max frame index: %w", err)
		}

		frame = model.Frame{
			SessionID: session,
			Idx:       maxIdx + 1,
			Filename:  fmt.Sprintf("%06d.jpg", maxIdx+1),
		}
		if err := tx.Create(&frame).Error; err != nil {
			return fmt.Errorf("failed to record frame: %w", err)
		}
		return nil
	})
	return frame, err
}

// DeleteFrame removes a single recorded frame, used to roll back a manifest
// entry whose image bytes failed to land on disk.
func (s *gormStore) DeleteFrame(ctx context.Context, frame model.Frame) error {
	return s.db.WithContext(ctx).Delete(&model.Frame{}, frame.ID).Error
}

// DeleteLastFrame removes the most recently captured frame for the session
// and returns it so the caller can unlink the file. Returns nil with no
// error when the session has no frames.
func (s *gormStore) DeleteLastFrame(ctx context.Context, session string) (*model.Frame, error) {
	var frame model.Frame
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("session_id = ?", session).
			Order("idx DESC").
			Limit(1).
			Find(&frame)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			frame = model.Frame{}
			return nil
		}
		return tx.Delete(&model.Frame{}, frame.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete last frame: %w", err)
	}
	if frame.ID == 0 {
		return nil, nil
	}
	return &frame, nil
}

// DeleteAllFrames clears the session's manifest and returns the removed rows.
func (s *gormStore) DeleteAllFrames(ctx context.Context, session string) ([]model.Frame, error) {
	var frames []model.Frame
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session).Order("idx ASC").Find(&frames).Error; err != nil {
			return err
		}
		if len(frames) == 0 {
			return nil
		}
		return tx.Where("session_id = ?", session).Delete(&model.Frame{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete frames: %w", err)
	}
	return frames, nil
}

// ListFrames returns the session's frames in capture order.
func (s *gormStore) ListFrames(ctx context.Context, session string) ([]model.Frame, error) {
	var frames []model.Frame
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session).
		Order("idx ASC").
		Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	return frames, nil
}
