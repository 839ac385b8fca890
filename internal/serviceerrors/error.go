package serviceerrors

import (
	"github.com/runboard/runboard/internal/messages"
)

type ServiceError struct {
	messageCode   *messages.MessageCode
	messageParams []any
}

func (e *ServiceError) Error() string {
	return messages.GetErrorMessage(e.messageCode, e.messageParams...)
}

func (e *ServiceError) MessageCode() *messages.MessageCode {
	return e.messageCode
}

func (e *ServiceError) MessageParams() []any {
	return e.messageParams
}

func NewServiceError(messageCode *messages.MessageCode, messageParams ...any) *ServiceError {
	return &ServiceError{
		messageCode:   messageCode,
		messageParams: messageParams,
	}
}

// FromError wraps an arbitrary error into a ServiceError. If the error already
// is a ServiceError it is returned unchanged.
func FromError(err error) *ServiceError {
	if se, ok := err.(*ServiceError); ok {
		return se
	}
	return &ServiceError{
		messageCode:   messages.UnknownError,
		messageParams: []any{"Error", err.Error()},
	}
}
