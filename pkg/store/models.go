package store

import "time"

// CuratedQuery is the reserved search key under which curated pages are stored.
const CuratedQuery = "curated"

// Src holds the URL variants of a wallpaper.
type Src struct {
	Original  string `json:"original"`
	Large2x   string `json:"large2x"`
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Small     string `json:"small"`
	Portrait  string `json:"portrait"`
	Landscape string `json:"landscape"`
	Tiny      string `json:"tiny"`
}

// Wallpaper is a locally stored Pexels photo.
type Wallpaper struct {
	ID              int        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	URL             string     `json:"url"`
	Photographer    string     `json:"photographer,omitempty"`
	PhotographerURL string     `json:"photographer_url,omitempty"`
	AvgColor        string     `json:"avg_color,omitempty"`
	Src             Src        `gorm:"embedded;embeddedPrefix:src_" json:"src"`
	IsFavorite      bool       `gorm:"not null;default:false;index" json:"is_favorite"`
	FavoritedAt     *time.Time `gorm:"index" json:"favorited_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName keeps the historical table name.
func (Wallpaper) TableName() string {
	return "wallpaper_table"
}

// SearchResult records which wallpapers a query returned, in order.
type SearchResult struct {
	Query       string `gorm:"primaryKey;size:191"`
	Position    int    `gorm:"primaryKey;autoIncrement:false"`
	WallpaperID int    `gorm:"not null;index"`
}

// Setting is a persisted key/value pair of UI state.
type Setting struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     string
	UpdatedAt time.Time
}

// WorkRequest is a persisted one-shot background job.
type WorkRequest struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`
	Name            string            `gorm:"uniqueIndex;size:191;not null" json:"name"`
	Tag             string            `gorm:"index;size:191" json:"tag"`
	Kind            string            `gorm:"size:64;not null" json:"kind"`
	Input           map[string]string `gorm:"serializer:json" json:"input"`
	RunAt           time.Time         `gorm:"index" json:"run_at"`
	Attempts        int               `json:"attempts"`
	RequiresNetwork bool              `json:"requires_network"`
	CreatedAt       time.Time         `json:"created_at"`
}
