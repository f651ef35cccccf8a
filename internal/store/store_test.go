package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DevinMcDonald/GallupStopMotion/internal/model"
)

// newTestStore sets up an in-memory SQLite database with migrations applied.
func newTestStore(t *testing.T) Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Frame{}))
	return NewGormStore(db)
}

func TestAppendFrameOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		frame, err := s.AppendFrame(ctx, "sess-a")
		require.NoError(t, err)
		assert.Equal(t, i, frame.Idx)
	}

	// A second session gets its own index space.
	frame, err := s.AppendFrame(ctx, "sess-b")
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Idx)
	assert.Equal(t, "000001.jpg", frame.Filename)

	frames, err := s.ListFrames(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, "000001.jpg", frames[0].Filename)
	assert.Equal(t, "000003.jpg", frames[2].Filename)
}

func TestDeleteLastFrameIsStackDiscipline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.AppendFrame(ctx, "sess")
		require.NoError(t, err)
	}

	removed, err := s.DeleteLastFrame(ctx, "sess")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, 3, removed.Idx)

	frames, err := s.ListFrames(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].Idx)
	assert.Equal(t, 2, frames[1].Idx)
}

func TestDeleteLastFrameEmptyIsNoOp(t *testing.T) {
	s := newTestStore(t)

	removed, err := s.DeleteLastFrame(context.Background(), "empty")
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestDeleteAllFrames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.AppendFrame(ctx, "sess")
		require.NoError(t, err)
	}
	_, err := s.AppendFrame(ctx, "other")
	require.NoError(t, err)

	removed, err := s.DeleteAllFrames(ctx, "sess")
	require.NoError(t, err)
	assert.Len(t, removed, 4)

	frames, err := s.ListFrames(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, frames)

	// Other sessions are untouched.
	frames, err = s.ListFrames(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	// Clearing an already-empty session is fine.
	removed, err = s.DeleteAllFrames(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestIndexContinuesAfterUndo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendFrame(ctx, "sess")
	require.NoError(t, err)
	_, err = s.AppendFrame(ctx, "sess")
	require.NoError(t, err)
	_, err = s.DeleteLastFrame(ctx, "sess")
	require.NoError(t, err)

	frame, err := s.AppendFrame(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Idx)
}
