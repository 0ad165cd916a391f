package contract

import "errors"

var (
	ErrCapabilityAbsent  = errors.New("text capability returned no response")
	ErrMalformedResponse = errors.New("capability response failed structural decode")
	ErrValidationGap     = errors.New("decoded response is missing a required field")
	ErrPersistence       = errors.New("run history persistence failed")
	ErrRunCancelled      = errors.New("run cancelled")
	ErrInvalidRole       = errors.New("target role is empty")
	ErrValidation        = errors.New("validation failed")
)
