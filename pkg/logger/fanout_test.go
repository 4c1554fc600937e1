package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestFanout(t *testing.T) {
	t.Parallel()

	t.Run("routes by level", func(t *testing.T) {
		t.Parallel()

		var all, errorsOnly bytes.Buffer
		log := slog.New(fanout{
			slog.NewJSONHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
			slog.NewJSONHandler(&errorsOnly, &slog.HandlerOptions{Level: slog.LevelError}),
		}).With(slog.String("entity", "Product"))

		log.Info("listed")
		log.Error("flush failed")

		assert.Contains(t, all.String(), "listed")
		assert.Contains(t, all.String(), "flush failed")
		assert.NotContains(t, errorsOnly.String(), "listed")
		assert.Contains(t, errorsOnly.String(), `"entity":"Product"`)
	})

	t.Run("failure does not starve other handlers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		h := fanout{
			failingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)},
			slog.NewTextHandler(&buf, nil),
		}
		err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "deleted", 0))
		require.Error(t, err)
		assert.Contains(t, buf.String(), "deleted")
	})
}
