package models

// FileVisibility controls how an uploaded object may be read back
type FileVisibility string

const (
	FileVisibilityPublic  FileVisibility = "public"  // profile images, served via CDN URL
	FileVisibilityPrivate FileVisibility = "private" // result screenshots, presigned GET only
)

// FileMetadata registers an object uploaded through the presign flow.
// Rows are created by the /uploads/complete endpoint after the client has
// PUT the object directly to storage.
type FileMetadata struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	Key         string `gorm:"uniqueIndex;not null" json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`

	Visibility FileVisibility `gorm:"type:varchar(8);default:'private'" json:"visibility"`

	Timestamps
}
