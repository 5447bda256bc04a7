package models

import (
	"encoding/base64"
	"time"
)

// Image is a single physical copy of an uploaded image, keyed by the md5 of the
// original bytes. Only the thumbnail is retained.
type Image struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentHash    string    `gorm:"size:32;not null;uniqueIndex" json:"content_hash"`
	PerceptualHash string    `gorm:"size:64" json:"perceptual_hash,omitempty"`
	Width          int       `gorm:"not null;default:0" json:"width"`  // original upload width
	Height         int       `gorm:"not null;default:0" json:"height"` // original upload height
	Thumbnail      []byte    `gorm:"not null" json:"-"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}

// ThumbnailBase64 returns the thumbnail as a data URI, or "" when there is none.
func (i *Image) ThumbnailBase64() string {
	if len(i.Thumbnail) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(i.Thumbnail)
}
