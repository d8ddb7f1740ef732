package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meme-service/config"
	"meme-service/fetcher"
	"meme-service/fixtures"
	"meme-service/model"
	"meme-service/repository/mongo"
)

const (
	sourceFixtures = "fixtures"
	sourceRemote   = "remote"
)

var (
	seedSource    string
	seedKeepMemes bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load memes and templates into MongoDB",
	Long: `seed loads the bundled fixtures into MongoDB. With --source=remote the
template catalogue is fetched from imgflip and Reddit instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Backend != config.BackendMongo {
			return fmt.Errorf("seed requires MEME_BACKEND=%s", config.BackendMongo)
		}
		return seed(cmd.Context())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedSource, "source", sourceFixtures, "template source: fixtures or remote")
	seedCmd.Flags().BoolVar(&seedKeepMemes, "keep-memes", false, "do not replace stored memes")
}

func seed(ctx context.Context) error {
	client, err := mongo.Connect(ctx, cfg.MongoURI, cfg.ConnectTimeout, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)
	mongo.EnsureIndexes(ctx, db)
	now := time.Now()

	var templates []model.Template
	switch seedSource {
	case sourceFixtures:
		templates, err = fixtures.Templates(now)
	case sourceRemote:
		f := fetcher.New(fetcher.Config{ImgflipURL: cfg.ImgflipURL, RedditURL: cfg.RedditURL}, log)
		templates, err = f.Fetch(ctx)
	default:
		return fmt.Errorf("unknown source %q", seedSource)
	}
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	if err := mongo.NewTemplates(db).Upsert(ctx, templates...); err != nil {
		return err
	}
	log.Info().Int("count", len(templates)).Str("source", seedSource).Msg("Templates seeded")

	if seedKeepMemes {
		return nil
	}
	memes, err := fixtures.Memes(now)
	if err != nil {
		return err
	}
	if err := mongo.NewMemes(db).ReplaceMemes(ctx, memes); err != nil {
		return err
	}
	log.Info().Int("count", len(memes)).Msg("Memes seeded")
	return nil
}
