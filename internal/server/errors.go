package server

import (
	"errors"
	"net/http"

	"github.com/Skufu/dhanvantari/internal/patient"
)

type httpError struct {
	Status  int
	Message string
}

func (e httpError) Error() string {
	return e.Message
}

// toHTTPError maps domain errors onto a status and a message safe to show.
func toHTTPError(err error) httpError {
	var he httpError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, patient.ErrNotFound):
		return httpError{Status: http.StatusNotFound, Message: err.Error()}
	default:
		return httpError{Status: http.StatusInternalServerError, Message: "internal server error"}
	}
}
