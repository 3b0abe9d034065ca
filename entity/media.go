package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
)

func (k MediaKind) Valid() bool {
	return k == MediaKindImage || k == MediaKindAudio
}

type StorageBucket string

const (
	BucketImages StorageBucket = "images"
	BucketAudio  StorageBucket = "audio"
)

func (b StorageBucket) Valid() bool {
	return b == BucketImages || b == BucketAudio
}

// Buckets lists every bucket the gateway writes to.
var Buckets = []StorageBucket{BucketImages, BucketAudio}

type Media struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Bucket      StorageBucket `json:"bucket" gorm:"type:varchar(16);not null;uniqueIndex:idx_media_bucket_path,priority:1"`
	Path        string        `json:"path" gorm:"type:varchar(1024);not null;uniqueIndex:idx_media_bucket_path,priority:2"`
	Mime        string        `json:"mime" gorm:"type:varchar(255);not null"`
	SizeBytes   int64         `json:"size_bytes" gorm:"not null"`
	Kind        MediaKind     `json:"kind" gorm:"type:varchar(16);not null"`
	Width       *int          `json:"width,omitempty"`
	Height      *int          `json:"height,omitempty"`
	DurationSec *float64      `json:"duration_sec,omitempty"`
	CreatedAt   time.Time     `json:"created_at" gorm:"not null;autoCreateTime;index"`
}

func (Media) TableName() string {
	return "media"
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
