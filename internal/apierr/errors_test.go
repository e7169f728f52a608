package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Service: "pvoutput", URL: "https://pvoutput.org/x", StatusCode: 400, Body: "Bad request 400: Invalid data"}
	assert.Equal(t, "pvoutput: https://pvoutput.org/x returned status 400: Bad request 400: Invalid data", err.Error())

	err.Payload = "20251021,09:25,1000.000000,,,,,240"
	assert.Contains(t, err.Error(), "(payload: 20251021,09:25,1000.000000,,,,,240)")
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	wrapped := fmt.Errorf("fetching energy: %w", &ParseError{Service: "fronius", Channel: "Voltage_AC_Phase_1", Err: inner})

	var pe *ParseError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "Voltage_AC_Phase_1", pe.Channel)
	assert.ErrorIs(t, wrapped, inner)

	var ue *UpstreamError
	assert.False(t, errors.As(wrapped, &ue))
}
