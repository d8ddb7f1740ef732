package utils

import "meme-service/model"

// Categories is the category table shown by the template browser, in
// display order.
var Categories = []model.CategoryOption{
	{Value: model.CategoryAll, Label: "全部", Icon: "i-carbon-grid"},
	{Value: model.CategoryWork, Label: "工作", Icon: "i-carbon-briefcase"},
	{Value: model.CategoryLife, Label: "生活", Icon: "i-carbon-home"},
	{Value: model.CategoryEmotion, Label: "情绪", Icon: "i-carbon-face-satisfied"},
	{Value: model.CategoryHoliday, Label: "节日", Icon: "i-carbon-calendar"},
}

// StyleOption is a meme style with its display label.
type StyleOption struct {
	Value model.Style `json:"value"`
	Label string      `json:"label"`
}

var StyleLabels = map[model.Style]string{
	model.StyleFunny:    "搞笑",
	model.StyleCute:     "可爱",
	model.StyleSerious:  "严肃",
	model.StyleAdorable: "萌系",
	model.StyleAngry:    "生气",
	model.StyleSad:      "难过",
	model.StyleHappy:    "开心",
}

// StyleOptions lists the styles with labels in display order.
func StyleOptions() []StyleOption {
	out := make([]StyleOption, 0, len(model.Styles))
	for _, s := range model.Styles {
		out = append(out, StyleOption{Value: s, Label: StyleLabels[s]})
	}
	return out
}

// Default list limits.
const (
	DefaultHotLimit     = 6
	DefaultSimilarLimit = 4
)

// Placeholder image hosts used for generated memes.
const (
	PlaceholderBase  = "https://via.placeholder.com"
	PlaceholderSize  = "400x400"
	PlaceholderColor = "FFFFFF"
)

// StyleColors is the placeholder background per style.
var StyleColors = map[model.Style]string{
	model.StyleFunny:    "22C55E",
	model.StyleCute:     "10B981",
	model.StyleSerious:  "3B82F6",
	model.StyleHappy:    "8B5CF6",
	model.StyleSad:      "EF4444",
	model.StyleAngry:    "F59E0B",
	model.StyleAdorable: "EC4899",
}

/*curl commands =>

curl -X POST "http://localhost:8080/api/memes/generate" -d '{"text":"今天好累","style":"funny"}'

curl "http://localhost:8080/api/memes?timeRange=7days&onlyFavorite=true"

curl "http://localhost:8080/api/templates?category=work&sort=latest"

curl "http://localhost:8080/api/templates/hot?limit=6"

curl "http://localhost:8080/api/library/stats"

*/
