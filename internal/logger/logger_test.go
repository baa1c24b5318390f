package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitializeWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { Initialize("info", "text") })

	ctx := WithRequestID(context.Background(), "req-1")
	HTTPRequest(ctx, "GET", "/api/assets", 200, 5*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"status":200`)
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "warn", "text")
	t.Cleanup(func() { Initialize("info", "text") })

	Info("hidden")
	DatabaseCall("assets.create", "INSERT")
	JobRun("refresh-inventory", time.Second, errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "Database call")
	assert.Contains(t, out, "Job failed")
	assert.Contains(t, out, "boom")
}

func TestRequestID_Missing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.NotNil(t, FromContext(context.Background()))
}
