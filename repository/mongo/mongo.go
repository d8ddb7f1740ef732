// Package mongo stores memes and templates in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"meme-service/metrics"
	"meme-service/model"
)

const (
	MemesCollection     = "memes"
	TemplatesCollection = "templates"
)

// EnsureIndexes creates the indexes used by the list queries. Failures are
// logged and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		MemesCollection: {
			{Keys: bson.D{{Key: "createTime", Value: -1}}},
			{Keys: bson.D{{Key: "isFavorite", Value: 1}, {Key: "createTime", Value: -1}}},
			{Keys: bson.D{{Key: "style", Value: 1}, {Key: "createTime", Value: -1}}},
		},
		TemplatesCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "useCount", Value: -1}}},
			{Keys: bson.D{{Key: "isHot", Value: 1}, {Key: "useCount", Value: -1}}},
			{Keys: bson.D{{Key: "style", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("Failed to create indexes")
		}
	}
}

// keywordRegex matches keyword as a literal, case-sensitive substring.
func keywordRegex(keyword string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(keyword)}
}

// pageOptions returns the skip and limit of page. ok is false when the page
// lies beyond any reachable offset and the query can be skipped.
func pageOptions(page, pageSize int) (opts *options.FindOptions, ok bool) {
	offset, ok := model.PageOffset(page, pageSize)
	if !ok {
		return nil, false
	}
	return options.Find().SetSkip(int64(offset)).SetLimit(int64(pageSize)), true
}

// Memes is a repository.Memes backed by a Mongo collection.
type Memes struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMemes returns a repository over db's memes collection.
func NewMemes(db *mongo.Database) *Memes {
	return &Memes{coll: db.Collection(MemesCollection), now: time.Now}
}

// WithClock replaces the clock used for time window filters.
func (r *Memes) WithClock(now func() time.Time) *Memes {
	r.now = now
	return r
}

func (r *Memes) filter(p model.MemeListParams) bson.M {
	filter := bson.M{}
	if window, ok := p.TimeRange.Window(); ok {
		filter["createTime"] = bson.M{"$gt": r.now().Add(-window)}
	}
	if p.Style != "" {
		filter["style"] = p.Style
	}
	if p.OnlyFavorite {
		filter["isFavorite"] = true
	}
	if p.Keyword != "" {
		filter["text"] = keywordRegex(p.Keyword)
	}
	return filter
}

func memeSort(key model.SortKey) bson.D {
	switch key {
	case model.SortHot:
		return bson.D{{Key: "likeCount", Value: -1}, {Key: "createTime", Value: -1}}
	default:
		// newest first is also the insertion order of the in-memory backend
		return bson.D{{Key: "createTime", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func (r *Memes) List(ctx context.Context, p model.MemeListParams) (model.ListResponse[model.Meme], error) {
	start := time.Now()
	page, pageSize := model.NormalizePage(p.Page, p.PageSize)
	filter := r.filter(p)

	list := []model.Meme{}
	if opts, ok := pageOptions(page, pageSize); ok {
		cursor, err := r.coll.Find(ctx, filter, opts.SetSort(memeSort(p.Sort)))
		metrics.ObserveMongo("find", MemesCollection, start, err)
		if err != nil {
			return model.ListResponse[model.Meme]{}, fmt.Errorf("find memes: %w", err)
		}
		if err := cursor.All(ctx, &list); err != nil {
			return model.ListResponse[model.Meme]{}, fmt.Errorf("decode memes: %w", err)
		}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	metrics.ObserveMongo("count", MemesCollection, start, err)
	if err != nil {
		return model.ListResponse[model.Meme]{}, fmt.Errorf("count memes: %w", err)
	}

	return model.ListResponse[model.Meme]{List: list, Total: int(total), Page: page, PageSize: pageSize}, nil
}

func (r *Memes) Get(ctx context.Context, id int64) (model.Meme, error) {
	start := time.Now()
	var m model.Meme
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	metrics.ObserveMongo("findOne", MemesCollection, start, ignoreNoDocuments(err))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Meme{}, model.NewNotFoundError("meme", id)
	}
	if err != nil {
		return model.Meme{}, fmt.Errorf("get meme %d: %w", id, err)
	}
	return m, nil
}

func (r *Memes) Insert(ctx context.Context, m model.Meme) error {
	start := time.Now()
	_, err := r.coll.InsertOne(ctx, m)
	metrics.ObserveMongo("insert", MemesCollection, start, err)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("meme %d already exists: %w", m.ID, model.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert meme %d: %w", m.ID, err)
	}
	return nil
}

func (r *Memes) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	metrics.ObserveMongo("delete", MemesCollection, start, err)
	if err != nil {
		return fmt.Errorf("delete meme %d: %w", id, err)
	}
	return nil
}

func (r *Memes) SetFavorite(ctx context.Context, id int64, on bool) (model.Meme, error) {
	start := time.Now()
	var err error
	if on {
		_, err = r.coll.UpdateOne(ctx,
			bson.M{"_id": id, "isFavorite": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{"isFavorite": true}, "$inc": bson.M{"favoriteCount": 1}},
		)
	} else {
		_, err = r.coll.UpdateOne(ctx,
			bson.M{"_id": id, "isFavorite": true},
			mongo.Pipeline{{{Key: "$set", Value: bson.M{
				"isFavorite":    false,
				"favoriteCount": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$favoriteCount", 1}}}},
			}}}},
		)
	}
	metrics.ObserveMongo("update", MemesCollection, start, err)
	if err != nil {
		return model.Meme{}, fmt.Errorf("set favorite on meme %d: %w", id, err)
	}
	return r.Get(ctx, id)
}

func (r *Memes) Similar(ctx context.Context, id int64, limit int) ([]model.Meme, error) {
	if limit <= 0 {
		return []model.Meme{}, nil
	}
	start := time.Now()
	opts := options.Find().SetSort(memeSort("")).SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": id}}, opts)
	metrics.ObserveMongo("find", MemesCollection, start, err)
	if err != nil {
		return nil, fmt.Errorf("find similar memes: %w", err)
	}
	out := []model.Meme{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode similar memes: %w", err)
	}
	return out, nil
}

// Templates is a repository.Templates backed by a Mongo collection.
type Templates struct {
	coll *mongo.Collection
}

// NewTemplates returns a repository over db's templates collection.
func NewTemplates(db *mongo.Database) *Templates {
	return &Templates{coll: db.Collection(TemplatesCollection)}
}

func templateFilter(p model.TemplateListParams) bson.M {
	filter := bson.M{}
	if p.Category != "" && p.Category != model.CategoryAll {
		filter["category"] = p.Category
	}
	if p.Style != "" {
		// matches any element of the style array
		filter["style"] = p.Style
	}
	if p.Keyword != "" {
		filter["$or"] = bson.A{
			bson.M{"name": keywordRegex(p.Keyword)},
			bson.M{"description": keywordRegex(p.Keyword)},
		}
	}
	return filter
}

func templateSort(key model.SortKey) bson.D {
	if key == model.SortLatest {
		return bson.D{{Key: "createTime", Value: -1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "useCount", Value: -1}, {Key: "_id", Value: 1}}
}

func (r *Templates) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Template, error) {
	start := time.Now()
	cursor, err := r.coll.Find(ctx, filter, opts)
	metrics.ObserveMongo("find", TemplatesCollection, start, err)
	if err != nil {
		return nil, fmt.Errorf("find templates: %w", err)
	}
	out := []model.Template{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return out, nil
}

func (r *Templates) List(ctx context.Context, p model.TemplateListParams) (model.ListResponse[model.Template], error) {
	page, pageSize := model.NormalizePage(p.Page, p.PageSize)
	filter := templateFilter(p)

	list := []model.Template{}
	if opts, ok := pageOptions(page, pageSize); ok {
		var err error
		list, err = r.find(ctx, filter, opts.SetSort(templateSort(p.Sort)))
		if err != nil {
			return model.ListResponse[model.Template]{}, err
		}
	}

	start := time.Now()
	total, err := r.coll.CountDocuments(ctx, filter)
	metrics.ObserveMongo("count", TemplatesCollection, start, err)
	if err != nil {
		return model.ListResponse[model.Template]{}, fmt.Errorf("count templates: %w", err)
	}

	return model.ListResponse[model.Template]{List: list, Total: int(total), Page: page, PageSize: pageSize}, nil
}

func (r *Templates) Get(ctx context.Context, id int64) (model.Template, error) {
	start := time.Now()
	var t model.Template
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	metrics.ObserveMongo("findOne", TemplatesCollection, start, ignoreNoDocuments(err))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Template{}, model.NewNotFoundError("template", id)
	}
	if err != nil {
		return model.Template{}, fmt.Errorf("get template %d: %w", id, err)
	}
	return t, nil
}

func (r *Templates) Hot(ctx context.Context, limit int) ([]model.Template, error) {
	if limit <= 0 {
		return []model.Template{}, nil
	}
	return r.find(ctx, bson.M{"isHot": true}, options.Find().SetSort(templateSort(model.SortHot)).SetLimit(int64(limit)))
}

func (r *Templates) Similar(ctx context.Context, id int64, limit int) ([]model.Template, error) {
	current, err := r.Get(ctx, id)
	if model.IsNotFound(err) || limit <= 0 {
		return []model.Template{}, nil
	}
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": bson.M{"$ne": id}, "category": current.Category}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit)))
}

// templateUpsert overwrites the catalogue fields of t and sets the usage
// counters and creation time only when the template is new.
func templateUpsert(t model.Template) bson.M {
	styles := t.Styles
	if styles == nil {
		styles = []model.Style{}
	}
	return bson.M{
		"$set": bson.M{
			"name":         t.Name,
			"description":  t.Description,
			"thumbnailUrl": t.ThumbnailURL,
			"imageUrl":     t.ImageURL,
			"category":     t.Category,
			"style":        styles,
			"defaultText":  t.DefaultText,
			"isHot":        t.IsHot,
		},
		"$setOnInsert": bson.M{
			"useCount":      t.UseCount,
			"favoriteCount": t.FavoriteCount,
			"createTime":    t.CreatedAt,
		},
	}
}

// Upsert refreshes the catalogue fields of known templates and inserts
// unknown ones. Usage counters and creation time of known templates are
// kept.
func (r *Templates) Upsert(ctx context.Context, templates ...model.Template) error {
	if len(templates) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(templates))
	for _, t := range templates {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": t.ID}).
			SetUpdate(templateUpsert(t)).
			SetUpsert(true))
	}

	start := time.Now()
	_, err := r.coll.BulkWrite(ctx, writes)
	metrics.ObserveMongo("bulkWrite", TemplatesCollection, start, err)
	if err != nil {
		return fmt.Errorf("upsert templates: %w", err)
	}
	return nil
}

func (r *Templates) IncrementUse(ctx context.Context, id int64) error {
	start := time.Now()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"useCount": 1}})
	metrics.ObserveMongo("update", TemplatesCollection, start, err)
	if err != nil {
		return fmt.Errorf("increment template %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return model.NewNotFoundError("template", id)
	}
	return nil
}

// ReplaceMemes drops every stored meme and inserts memes. Used by the seed
// command.
func (r *Memes) ReplaceMemes(ctx context.Context, memes []model.Meme) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear memes: %w", err)
	}
	if len(memes) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(memes))
	for _, m := range memes {
		docs = append(docs, m)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert memes: %w", err)
	}
	return nil
}

func ignoreNoDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}

// Connect dials uri and pings the primary, retrying with exponential
// backoff until timeout elapses.
func Connect(ctx context.Context, uri string, timeout time.Duration, logger zerolog.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			logger.Warn().Err(err).Msg("MongoDB not reachable yet")
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info().Msg("Connected to MongoDB")
	return client, nil
}
