package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageAsset is an uploaded image tracked for lifecycle cleanup. The
// original and its thumbnail are stored as separate objects; deleting
// the record triggers removal of both.
type ImageAsset struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID uuid.UUID `json:"businessId" db:"business_id"`
	OwnerID    uuid.UUID `json:"ownerId" db:"owner_id"`
	Kind       string    `json:"kind" db:"kind"`

	ObjectKey    string `json:"objectKey" db:"object_key"`
	ThumbnailKey string `json:"thumbnailKey" db:"thumbnail_key"`
	URL          string `json:"url" db:"url"`
	ThumbnailURL string `json:"thumbnailUrl" db:"thumbnail_url"`

	Format string `json:"format" db:"format"`
	Width  int    `json:"width" db:"width"`
	Height int    `json:"height" db:"height"`
	Size   int64  `json:"size" db:"size"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
