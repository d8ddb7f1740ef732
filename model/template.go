package model

import (
	"slices"
	"time"
)

// Category groups templates by scene.
type Category string

const (
	CategoryAll     Category = "all"
	CategoryWork    Category = "work"
	CategoryLife    Category = "life"
	CategoryEmotion Category = "emotion"
	CategoryHoliday Category = "holiday"
)

// Template is a reusable base image memes are generated from.
type Template struct {
	ID            int64     `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	ThumbnailURL  string    `bson:"thumbnailUrl" json:"thumbnailUrl"`
	ImageURL      string    `bson:"imageUrl" json:"imageUrl"`
	Category      Category  `bson:"category" json:"category"`
	Styles        []Style   `bson:"style" json:"style"`
	DefaultText   string    `bson:"defaultText,omitempty" json:"defaultText,omitempty"`
	UseCount      int       `bson:"useCount" json:"useCount"`
	FavoriteCount int       `bson:"favoriteCount" json:"favoriteCount"`
	CreatedAt     time.Time `bson:"createTime" json:"createTime"`
	IsHot         bool      `bson:"isHot" json:"isHot"`
}

// Clone returns a copy of t that shares no memory with it.
func (t Template) Clone() Template {
	t.Styles = slices.Clone(t.Styles)
	return t
}

// HasStyle reports whether the template is tagged with s.
func (t Template) HasStyle(s Style) bool {
	for _, st := range t.Styles {
		if st == s {
			return true
		}
	}
	return false
}

// TemplateListParams filters, sorts and pages the template listing.
type TemplateListParams struct {
	Page     int      `form:"page" json:"page"`
	PageSize int      `form:"pageSize" json:"pageSize"`
	Category Category `form:"category" json:"category"`
	Style    Style    `form:"style" json:"style"`
	// Scene is accepted for compatibility and not used for filtering.
	Scene   string  `form:"scene" json:"scene"`
	Sort    SortKey `form:"sort" json:"sort"`
	Keyword string  `form:"keyword" json:"keyword"`
}

// CategoryOption is a category with its display label and icon.
type CategoryOption struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
	Icon  string   `json:"icon,omitempty"`
}
