package model

import "time"

// Frame is one captured image within a session. Idx is the capture order;
// filenames are zero-padded by index so lexicographic order matches too.
type Frame struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:64;not null;uniqueIndex:idx_session_frame"`
	Idx       int       `gorm:"not null;uniqueIndex:idx_session_frame" json:"index"`
	Filename  string    `gorm:"size:64;not null" json:"file"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}
