package services

import "net/http"

// Error is a failure the handler boundary renders verbatim: Message as
// the JSON body at Status. Anything else that escapes a service is an
// internal error and gets the generic 500 response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func badRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

func notFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func unavailable(message string) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: message}
}
