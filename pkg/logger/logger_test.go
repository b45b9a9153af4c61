package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel(""))
	assert.Equal(t, slog.LevelInfo, getLogLevel("loud"))
}

func TestLogTransitionRejected_WritesFields(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)

	l.LogTransitionRejected(context.Background(), "b-1", "cancelled", "staff", errors.New("refund intent required"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"Booking Transition Rejected"`)
	assert.Contains(t, out, `"booking_id":"b-1"`)
	assert.Contains(t, out, `"error":"refund intent required"`)
}

func TestDiscard_DropsRecords(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() {
		l.LogEmitFailure(context.Background(), "booking.status_changed", "b-1", errors.New("queue full"))
	})
}
