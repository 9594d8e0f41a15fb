package logger

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	fn()
	return buf.String()
}

func TestFormatFields(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   string
	}{
		{name: "empty", fields: nil, want: ""},
		{name: "sorted keys", fields: Fields{"b": 2, "a": "x"}, want: "{a=x, b=2}"},
		{name: "floats and errors", fields: Fields{"ratio": 0.5, "error": errors.New("boom")}, want: "{error=boom, ratio=0.50}"},
		{name: "int64", fields: Fields{"duration_ms": int64(12)}, want: "{duration_ms=12}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFields(tt.fields))
		})
	}
}

func TestLevels(t *testing.T) {
	out := captureLog(t, func() {
		Info("saved", Fields{"template": "glyph"})
		Warn("slow", nil)
		Debug("detail", Fields{})
		Error("failed", errors.New("boom"), Fields{"template": "spiral"})
	})

	assert.Contains(t, out, "[INFO] saved {template=glyph}")
	assert.Contains(t, out, "[WARN] slow")
	assert.Contains(t, out, "[DEBUG] detail")
	assert.Contains(t, out, "[ERROR] failed: boom {template=spiral}")
}

func TestMerge(t *testing.T) {
	base := Fields{"a": 1, "b": 2}
	merged := Merge(base, Fields{"b": 3, "c": 4})

	assert.Equal(t, Fields{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, 2, base["b"], "base must not be modified")
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/visualize", nil)
	c.Set("request_id", "req-1")
	c.Set("run_id", "run-1")

	fields := WithContext(c)
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/visualize", fields["path"])
	assert.Equal(t, "run-1", fields["run_id"])
}
