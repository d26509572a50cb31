package ec2

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "test"}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	require.True(t, IsNotFound(apiError("InvalidInstanceID.NotFound")))
	require.True(t, IsNotFound(fmt.Errorf("wrapped: %w", apiError("InvalidInstanceID.Malformed"))))
	require.False(t, IsNotFound(apiError("IncorrectInstanceState")))

	require.True(t, IsIncorrectState(apiError("IncorrectInstanceState")))
	require.True(t, IsThrottled(apiError("RequestLimitExceeded")))
	require.True(t, IsThrottled(apiError("Throttling")))

	require.False(t, IsNotFound(nil))
	require.False(t, IsNotFound(errors.New("plain")))
}
