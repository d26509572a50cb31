package ec2

import (
	"errors"

	"github.com/aws/smithy-go"
)

// isAPIErrorCode checks whether err is an AWS API error with one of the
// given codes.
func isAPIErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

// IsNotFound checks if an error indicates the instance does not exist.
func IsNotFound(err error) bool {
	return isAPIErrorCode(err, "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed")
}

// IsIncorrectState checks if an error indicates the instance is not in a
// state that allows the requested transition.
func IsIncorrectState(err error) bool {
	return isAPIErrorCode(err, "IncorrectInstanceState")
}

// IsThrottled checks if an error indicates API rate limiting.
func IsThrottled(err error) bool {
	return isAPIErrorCode(err, "RequestLimitExceeded", "Throttling")
}
