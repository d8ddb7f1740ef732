// Package fixtures holds the sample memes and templates served by the
// in-memory backend and loaded into Mongo by the seed command.
package fixtures

import (
	"embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"meme-service/model"
)

//go:embed data/*.yaml
var files embed.FS

// Records carry an age instead of a timestamp so the collection always looks
// freshly created relative to startup.
type memeRecord struct {
	ID            int64         `yaml:"id"`
	ImageURL      string        `yaml:"imageUrl"`
	Text          string        `yaml:"text"`
	Style         model.Style   `yaml:"style"`
	TemplateID    *int64        `yaml:"templateId"`
	Age           time.Duration `yaml:"age"`
	IsFavorite    bool          `yaml:"isFavorite"`
	LikeCount     int           `yaml:"likeCount"`
	FavoriteCount int           `yaml:"favoriteCount"`
}

type templateRecord struct {
	ID            int64          `yaml:"id"`
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	ThumbnailURL  string         `yaml:"thumbnailUrl"`
	ImageURL      string         `yaml:"imageUrl"`
	Category      model.Category `yaml:"category"`
	Styles        []model.Style  `yaml:"style"`
	DefaultText   string         `yaml:"defaultText"`
	UseCount      int            `yaml:"useCount"`
	FavoriteCount int            `yaml:"favoriteCount"`
	Age           time.Duration  `yaml:"age"`
	IsHot         bool           `yaml:"isHot"`
}

func decode(name string, out any) error {
	raw, err := files.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

// Memes returns the sample memes, created relative to now.
func Memes(now time.Time) ([]model.Meme, error) {
	var recs []memeRecord
	if err := decode("memes.yaml", &recs); err != nil {
		return nil, err
	}
	out := make([]model.Meme, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Meme{
			ID:            r.ID,
			ImageURL:      r.ImageURL,
			Text:          r.Text,
			Style:         r.Style,
			TemplateID:    r.TemplateID,
			CreatedAt:     now.Add(-r.Age),
			IsFavorite:    r.IsFavorite,
			LikeCount:     r.LikeCount,
			FavoriteCount: r.FavoriteCount,
		})
	}
	return out, nil
}

// Templates returns the template catalogue, created relative to now.
func Templates(now time.Time) ([]model.Template, error) {
	var recs []templateRecord
	if err := decode("templates.yaml", &recs); err != nil {
		return nil, err
	}
	out := make([]model.Template, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Template{
			ID:            r.ID,
			Name:          r.Name,
			Description:   r.Description,
			ThumbnailURL:  r.ThumbnailURL,
			ImageURL:      r.ImageURL,
			Category:      r.Category,
			Styles:        r.Styles,
			DefaultText:   r.DefaultText,
			UseCount:      r.UseCount,
			FavoriteCount: r.FavoriteCount,
			CreatedAt:     now.Add(-r.Age),
			IsHot:         r.IsHot,
		})
	}
	return out, nil
}
