package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/model"
)

const imgflipBody = `{"success":true,"data":{"memes":[
	{"id":"181913649","name":"Drake Hotline Bling","url":"https://i.imgflip.com/30b1gx.jpg","box_count":2},
	{"id":"87743020","name":"Two Buttons","url":"https://i.imgflip.com/1g8my4.jpg","box_count":3},
	{"id":"bad","name":"Broken","url":"https://i.imgflip.com/x.jpg","box_count":1}
]}}`

const redditBody = `{"data":{"children":[
	{"data":{"id":"1abcde","title":"so true","url":"https://i.redd.it/a.png","score":900}},
	{"data":{"id":"1fghij","title":"video","url":"https://v.redd.it/b","score":10}},
	{"data":{"id":"1klmno","title":"repost","url":"https://i.imgflip.com/30b1gx.jpg","score":5}}
]}}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/get_memes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(imgflipBody))
	})
	mux.HandleFunc("/top.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(redditBody))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchImgflip(t *testing.T) {
	srv := newServer(t)
	f := New(Config{ImgflipURL: srv.URL + "/get_memes"}, zerolog.Nop())
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	got, err := f.FetchImgflip(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(181913649), got[0].ID)
	assert.Equal(t, "Drake Hotline Bling", got[0].Name)
	assert.True(t, got[0].IsHot)
	assert.Equal(t, now, got[0].CreatedAt)
	assert.True(t, got[1].HasStyle(model.StyleFunny))
}

func TestFetchCombinesAndDeduplicates(t *testing.T) {
	srv := newServer(t)
	f := New(Config{ImgflipURL: srv.URL + "/get_memes", RedditURL: srv.URL + "/top.json"}, zerolog.Nop())

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	// two imgflip templates plus one reddit image; the repost and the video are dropped
	require.Len(t, got, 3)
	assert.Equal(t, "so true", got[2].Name)
	assert.Equal(t, model.CategoryEmotion, got[2].Category)
}

func TestFetchFailsWhenEverySourceFails(t *testing.T) {
	srv := newServer(t)
	f := New(Config{ImgflipURL: srv.URL + "/broken", RedditURL: srv.URL + "/broken"}, zerolog.Nop())

	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchToleratesOneFailingSource(t *testing.T) {
	srv := newServer(t)
	f := New(Config{ImgflipURL: srv.URL + "/broken", RedditURL: srv.URL + "/top.json"}, zerolog.Nop())

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDeduplicate(t *testing.T) {
	in := []model.Template{
		{ID: 1, ImageURL: "a"},
		{ID: 2, ImageURL: "a"},
		{ID: 1, ImageURL: "b"},
		{ID: 3, ImageURL: "c"},
	}
	got := Deduplicate(in)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}
