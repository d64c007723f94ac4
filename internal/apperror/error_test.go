package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewSourceError(ErrSourceRequest, "altnews", "request failed", errors.New("connection refused"))
	assert.Equal(t, "[source-SRC_001] request failed: connection refused", err.Error())

	plain := NewConfigError(ErrConfigValidation, "bad port", nil)
	assert.Equal(t, "[config-CFG_002] bad port", plain.Error())
}

func TestErrorUnwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := fmt.Errorf("fetch: %w", NewSourceError(ErrSourceTimeout, "boom", "timed out", inner))

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "boom", ae.Component)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewStatusError("newsapi", 503)))
	assert.True(t, IsTransient(NewStatusError("newsapi", 429)))
	assert.False(t, IsTransient(NewStatusError("newsapi", 404)))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(NewSourceError(ErrSourceCredential, "newsapi", "no key", nil)))
	assert.False(t, IsTransient(nil))
}

func TestStatusErrorCarriesStatus(t *testing.T) {
	err := NewStatusError("Alt News", 502)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, 502, err.StatusCode)
}

func TestErrorBufferKeepsNewest(t *testing.T) {
	buf := NewErrorBuffer(3)
	for i := 0; i < 5; i++ {
		buf.Add(ErrorEvent{Code: fmt.Sprintf("E%d", i)})
	}

	require.Equal(t, 3, buf.Len())
	recent := buf.GetRecent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "E4", recent[0].Code)
	assert.Equal(t, "E2", recent[2].Code)

	assert.Len(t, buf.GetRecent(1), 1)
}

func TestEventFromError(t *testing.T) {
	ev := EventFromError(NewStatusError("factly", 500), "regional")
	assert.Equal(t, ErrorTypeSource, ev.Type)
	assert.Equal(t, ErrSourceStatus, ev.Code)
	assert.Equal(t, "factly", ev.Component)

	ev = EventFromError(errors.New("boom"), "probe")
	assert.Equal(t, ErrorTypeInternal, ev.Type)
	assert.Equal(t, "probe", ev.Component)
	assert.Equal(t, "boom", ev.Message)
}
