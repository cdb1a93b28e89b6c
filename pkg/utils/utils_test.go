package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("LT_INT", "42")
	t.Setenv("LT_BAD_INT", "forty")
	t.Setenv("LT_FLOAT", "0.25")
	t.Setenv("LT_DUR", "1500ms")
	t.Setenv("LT_LIST", " kafka-1:9092, ,kafka-2:9092 ")

	assert.Equal(t, 42, GetEnvInt("LT_INT", 1))
	assert.Equal(t, 1, GetEnvInt("LT_BAD_INT", 1))
	assert.Equal(t, 7, GetEnvInt("LT_UNSET", 7))
	assert.Equal(t, 0.25, GetEnvFloat("LT_FLOAT", 0))
	assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("LT_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("LT_UNSET", time.Second))
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, GetEnvList("LT_LIST"))
	assert.Nil(t, GetEnvList("LT_UNSET"))
	assert.Equal(t, "fallback", GetEnv("LT_UNSET", "fallback"))
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_LEVEL", "debug")

	logger, err := NewLogger("loadtest")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestSendHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	SendValidationError(c, errors.New("mobile is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "mobile is required", body.Error.Details)
}
