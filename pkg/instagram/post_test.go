package instagram

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igdl/pkg/errors"
)

func TestFetchPostCarousel(t *testing.T) {
	id, err := ShortcodeToMediaID("Ccar")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/media/"+id+"/info/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"items": []interface{}{map[string]interface{}{
				"code":     "Ccar",
				"taken_at": 1700000000,
				"carousel_media": []interface{}{
					imagePost("", 0, "https://cdn/1.jpg"),
					videoPost("", 0, "https://cdn/2.mp4"),
				},
			}},
			"status": "ok",
		})
	})
	s, _, _ := newTestSession(t, mux)

	items, dropped, err := s.FetchPost(context.Background(), "Ccar")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, items, 2)
	assert.Equal(t, "Ccar", items[0].Shortcode)
	assert.Equal(t, 1, items[0].Index)
	assert.Equal(t, 2, items[1].Index)
	assert.True(t, items[1].IsVideo)
}

func TestFetchPostNotFound(t *testing.T) {
	s, _, _ := newTestSession(t, http.NewServeMux())

	_, _, err := s.FetchPost(context.Background(), "Cmissing")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}

func TestFetchPostEmptyItems(t *testing.T) {
	id, err := ShortcodeToMediaID("Cempty")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/media/"+id+"/info/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"items": []interface{}{}, "status": "ok"})
	})
	s, _, _ := newTestSession(t, mux)

	_, _, err = s.FetchPost(context.Background(), "Cempty")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
}
