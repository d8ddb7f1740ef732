package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/events"
	"meme-service/model"
	"meme-service/repository/memory"
	"meme-service/repository/repotest"
	"meme-service/service"
)

func newGenerator() *service.MemeService {
	return service.NewMemeService(
		memory.NewMemes(nil),
		memory.NewTemplates(repotest.SeedTemplates()),
		service.Options{Logger: zerolog.Nop()},
	)
}

func encode(t *testing.T, job model.GenerateJob) []byte {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return data
}

func TestProcess(t *testing.T) {
	w := New(Config{}, nil, newGenerator(), nil, nil, zerolog.Nop())
	ctx := context.Background()

	res := w.Process(ctx, encode(t, model.GenerateJob{RequestID: "r1", Request: model.GenerateRequest{Text: "hi"}}))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "r1", res.RequestID)
	assert.Equal(t, "hi", res.Result.Meme.Text)
	assert.Nil(t, res.Result.Meme.TemplateID)

	res = w.Process(ctx, encode(t, model.GenerateJob{RequestID: "r2", Request: model.GenerateRequest{TemplateText: "t", TemplateID: 2}}))
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Result.Meme.TemplateID)
	assert.Equal(t, int64(2), *res.Result.Meme.TemplateID)

	res = w.Process(ctx, encode(t, model.GenerateJob{RequestID: "r3", Request: model.GenerateRequest{Text: "x", TemplateID: 99}}))
	assert.False(t, res.Success)
	assert.Equal(t, "template no longer exists", res.Error)

	res = w.Process(ctx, []byte("{not json"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid request")
}

type stubSource struct {
	items []model.Template
	err   error
}

func (s stubSource) Fetch(context.Context) ([]model.Template, error) { return s.items, s.err }

func TestRefreshTemplates(t *testing.T) {
	sink := memory.NewTemplates(nil)
	items := []model.Template{{ID: 100, Name: "Drake", Category: model.CategoryLife}}

	w := New(Config{}, nil, newGenerator(), stubSource{items: items}, sink, zerolog.Nop())
	assert.Equal(t, 1, w.RefreshTemplates(context.Background()))
	got, err := sink.Get(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "Drake", got.Name)

	w = New(Config{}, nil, newGenerator(), stubSource{err: errors.New("offline")}, sink, zerolog.Nop())
	assert.Equal(t, 0, w.RefreshTemplates(context.Background()))
}

func TestSchedulerRunsImmediatelyAndStops(t *testing.T) {
	sink := memory.NewTemplates(nil)
	src := stubSource{items: []model.Template{{ID: 7, Name: "x"}}}
	w := New(Config{RefreshInterval: time.Hour}, nil, newGenerator(), src, sink, zerolog.Nop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool {
		_, err := sink.Get(context.Background(), 7)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestWorker_Integration(t *testing.T) {
	url := os.Getenv("MEME_TEST_NATS_URL")
	if url == "" {
		t.Skip("MEME_TEST_NATS_URL not set; skipping NATS integration test")
	}
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	w := New(Config{}, nc, newGenerator(), nil, nil, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	data := encode(t, model.GenerateJob{RequestID: "req", Request: model.GenerateRequest{Text: "nats"}})
	msg, err := nc.Request(events.SubjectGenerate, data, 2*time.Second)
	require.NoError(t, err)

	var res model.GenerateJobResult
	require.NoError(t, json.Unmarshal(msg.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "req", res.RequestID)
}
