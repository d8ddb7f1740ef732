package model

import "time"

// Style is the visual tone of a meme.
type Style string

const (
	StyleFunny    Style = "funny"
	StyleCute     Style = "cute"
	StyleSerious  Style = "serious"
	StyleAdorable Style = "adorable"
	StyleAngry    Style = "angry"
	StyleSad      Style = "sad"
	StyleHappy    Style = "happy"
)

// Styles lists every known style in display order.
var Styles = []Style{StyleFunny, StyleCute, StyleSerious, StyleAdorable, StyleAngry, StyleSad, StyleHappy}

// Valid reports whether s is one of the known styles.
func (s Style) Valid() bool {
	for _, known := range Styles {
		if s == known {
			return true
		}
	}
	return false
}

// Meme is a generated image-plus-text artifact.
type Meme struct {
	ID            int64     `bson:"_id" json:"id"`
	ImageURL      string    `bson:"imageUrl" json:"imageUrl"`
	Text          string    `bson:"text" json:"text"`
	Style         Style     `bson:"style" json:"style"`
	TemplateID    *int64    `bson:"templateId,omitempty" json:"templateId,omitempty"`
	CreatedAt     time.Time `bson:"createTime" json:"createTime"`
	IsFavorite    bool      `bson:"isFavorite" json:"isFavorite"`
	LikeCount     int       `bson:"likeCount" json:"likeCount"`
	FavoriteCount int       `bson:"favoriteCount" json:"favoriteCount"`
}

// TimeRange limits a meme listing to recently created records.
type TimeRange string

const (
	TimeRange7Days  TimeRange = "7days"
	TimeRange30Days TimeRange = "30days"
	TimeRangeAll    TimeRange = "all"
)

// Window returns how far back the range reaches. The second value is false
// for "all" and for unrecognized ranges.
func (r TimeRange) Window() (time.Duration, bool) {
	switch r {
	case TimeRange7Days:
		return 7 * 24 * time.Hour, true
	case TimeRange30Days:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// SortKey orders a listing.
type SortKey string

const (
	SortHot    SortKey = "hot"
	SortLatest SortKey = "latest"
)

// MemeListParams filters and pages the "my memes" listing.
type MemeListParams struct {
	Page         int       `form:"page" json:"page"`
	PageSize     int       `form:"pageSize" json:"pageSize"`
	TimeRange    TimeRange `form:"timeRange" json:"timeRange"`
	Style        Style     `form:"style" json:"style"`
	OnlyFavorite bool      `form:"onlyFavorite" json:"onlyFavorite"`
	Keyword      string    `form:"keyword" json:"keyword"`
	Sort         SortKey   `form:"sort" json:"sort"`
}

// GenerateRequest asks for a new meme, optionally based on a template.
type GenerateRequest struct {
	Text         string `json:"text"`
	Style        Style  `json:"style,omitempty"`
	TemplateID   int64  `json:"templateId,omitempty"`
	TemplateText string `json:"templateText,omitempty"`
}

// GenerateResult is the generated meme and how long generation took, in seconds.
type GenerateResult struct {
	Meme     Meme    `json:"meme"`
	Duration float64 `json:"duration"`
}

// FavoriteRequest sets or clears the favorite flag of a meme.
type FavoriteRequest struct {
	IsFavorite bool `json:"isFavorite"`
}

// MemeUpdate is a partial update; nil fields are left untouched.
type MemeUpdate struct {
	ImageURL      *string `json:"imageUrl,omitempty"`
	Text          *string `json:"text,omitempty"`
	Style         *Style  `json:"style,omitempty"`
	LikeCount     *int    `json:"likeCount,omitempty"`
	FavoriteCount *int    `json:"favoriteCount,omitempty"`
}

// Apply copies the set fields onto m.
func (u MemeUpdate) Apply(m *Meme) {
	if u.ImageURL != nil {
		m.ImageURL = *u.ImageURL
	}
	if u.Text != nil {
		m.Text = *u.Text
	}
	if u.Style != nil {
		m.Style = *u.Style
	}
	if u.LikeCount != nil {
		m.LikeCount = *u.LikeCount
	}
	if u.FavoriteCount != nil {
		m.FavoriteCount = *u.FavoriteCount
	}
}

// Clone returns a copy of m that shares no memory with it.
func (m Meme) Clone() Meme {
	if m.TemplateID != nil {
		id := *m.TemplateID
		m.TemplateID = &id
	}
	return m
}
