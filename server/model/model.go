package model

import (
	"time"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// User is an account. Deletion is soft: DeletedAt is set, and every
// credential lookup filters deleted users out.
type User struct {
	BaseModel
	Email           string     `json:"email"`
	EmailNormalized string     `json:"-"`
	Name            string     `json:"name" gorm:"default:null"`
	Password        []byte     `json:"-" gorm:"default:null"`
	PinCode         []byte     `json:"-" gorm:"default:null"`
	IsAdmin         bool       `json:"isAdmin"`
	CreatedAt       time.Time  `json:"createdAt"`
	DeletedAt       *time.Time `json:"-" gorm:"default:null"`
}

// Session is a logged-in device. Token is the base64 SHA-256 of the value
// the client holds; the plaintext never touches the database.
// PinExpiresAt, while in the future, marks the session as PIN-elevated.
type Session struct {
	BaseModel
	Token        string     `json:"-"`
	UserID       int64      `json:"userId"`
	DeviceOS     string     `json:"deviceOS" gorm:"default:null"`
	DeviceType   string     `json:"deviceType" gorm:"default:null"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	ExpiresAt    *time.Time `json:"expiresAt" gorm:"default:null"`
	PinExpiresAt *time.Time `json:"-" gorm:"default:null"`
}

// ApiKey is a long-lived credential scoped to a fixed permission set.
// Key is the base64 SHA-256 of the secret, which is shown to the user once.
type ApiKey struct {
	BaseModel
	Name        string    `json:"name"`
	Key         string    `json:"-"`
	UserID      int64     `json:"userId"`
	Permissions string    `json:"permissions"` // comma-joined auth.Permission names
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SharedLink grants scoped access to a single post without a user session.
// Key is the base64 of 32 random bytes. Slug is an optional human-friendly
// alternative to the key.
type SharedLink struct {
	BaseModel
	Key       string     `json:"-"`
	Slug      string     `json:"slug" gorm:"default:null"`
	UserID    int64      `json:"userId"`
	PostID    int64      `json:"postId"`
	ExpiresAt *time.Time `json:"expiresAt" gorm:"default:null"`
	CreatedAt time.Time  `json:"createdAt"`
}

const (
	PostStatusDraft     = "DRAFT"
	PostStatusPublished = "PUBLISHED"
	PostStatusArchived  = "ARCHIVED"
)

type Post struct {
	BaseModel
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Summary      string     `json:"summary" gorm:"default:null"`
	Content      string     `json:"content"`
	ThumbnailURL string     `json:"thumbnailUrl" gorm:"default:null"`
	Status       string     `json:"status"`
	AuthorID     int64      `json:"authorId"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	PublishedAt  *time.Time `json:"publishedAt" gorm:"default:null"`
}

// PostSummary is Post without Content, for list and search responses.
type PostSummary struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Summary      string     `json:"summary"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Status       string     `json:"status"`
	AuthorID     int64      `json:"authorId"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	PublishedAt  *time.Time `json:"publishedAt"`
}

// Image is an uploaded blob. StorageKey is its name in the blob store;
// URL is the path clients fetch it from.
type Image struct {
	BaseModel
	URL         string    `json:"url"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
