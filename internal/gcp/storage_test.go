package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("ASO_TEST_STRING", "value")
	t.Setenv("ASO_TEST_INT", "7")
	t.Setenv("ASO_TEST_BAD_INT", "seven")
	t.Setenv("ASO_TEST_DURATION", "45s")

	assert.Equal(t, "value", GetEnv("ASO_TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnv("ASO_TEST_MISSING", "fallback"))
	assert.Equal(t, 7, GetEnvInt("ASO_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("ASO_TEST_BAD_INT", 1))
	assert.Equal(t, 45*time.Second, GetEnvDuration("ASO_TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, GetEnvDuration("ASO_TEST_MISSING", time.Minute))
}

func TestGCSUri(t *testing.T) {
	assert.Equal(t, "gs://out/job/parte_1.pdf", GCSUri("out", "job/parte_1.pdf"))
}

func TestIsPreconditionFailed(t *testing.T) {
	wrapped := fmt.Errorf("write: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})
	assert.True(t, isPreconditionFailed(wrapped))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("boom")))
}
