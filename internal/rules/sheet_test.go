package rules

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetSourceRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spreadsheets/d/sheet-123/gviz/tq", r.URL.Path)
		assert.Equal(t, "out:csv", r.URL.Query().Get("tqx"))
		assert.Equal(t, "Rules", r.URL.Query().Get("sheet"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("\"user_email\",\"symb\",\"status\"\n\"a@x.io\",\"AAPL\",\"Active\"\n"))
	}))
	defer srv.Close()

	src := NewSheetSource(SheetOptions{SheetID: "sheet-123", BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	records, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AAPL", records[0]["symb"])
}

func TestSheetSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sheet") == "Private" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>sign in</html>"))
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewSheetSource(SheetOptions{}, zerolog.Nop()).Records(context.Background())
	assert.Error(t, err, "missing sheet id")

	_, err = NewSheetSource(SheetOptions{SheetID: "x", BaseURL: srv.URL}, zerolog.Nop()).Records(context.Background())
	assert.ErrorContains(t, err, "404")

	_, err = NewSheetSource(SheetOptions{SheetID: "x", Worksheet: "Private", BaseURL: srv.URL}, zerolog.Nop()).Records(context.Background())
	assert.ErrorContains(t, err, "html")
}
