package testutil

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "dispatcher").Info("batch started")
		logger.WithGroup("job").Info("job failed", slog.String("name", "a.csv"))

		assert.Equal(t, 2, handler.Count())
		AssertLogAttr(t, handler, "component", "dispatcher")
		AssertLogAttr(t, handler, "job.name", "a.csv")
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		assert.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})

	t.Run("assertion helpers", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("important message", slog.String("component", "test"))
		logger.Warn("warning message", slog.Int("retry", 3))

		AssertLogContains(t, handler, slog.LevelInfo, "important")
		AssertLogAttr(t, handler, "component", "test")
		AssertNoErrors(t, handler)
	})

	t.Run("thread safety", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func(n int) {
				logger.Info("concurrent log", slog.Int("goroutine", n))
				done <- true
			}(i)
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		assert.Equal(t, 10, handler.Count())
	})
}

func TestCampaignCSV(t *testing.T) {
	data := CampaignCSV(t, "123/Spring", "Summer, sale")

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		CampaignHeader,
		{"1", "123/Spring", "10"},
		{"2", "Summer, sale", "20"},
	}, records)
}

func TestMultipartBody(t *testing.T) {
	body, contentType := MultipartBody(t,
		MultipartFile{Name: "a.csv", Content: []byte("x\n")},
		MultipartFile{Field: "other", Name: "b.csv", Content: []byte("y\n")},
	)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)

	r := multipart.NewReader(body, params["boundary"])
	part, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "files[]", part.FormName())
	assert.Equal(t, "a.csv", part.FileName())
	content, _ := io.ReadAll(part)
	assert.Equal(t, "x\n", string(content))

	part, err = r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "other", part.FormName())

	_, err = r.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}
