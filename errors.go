package main

import (
	"errors"
	"net/http"

	"github.com/CodedInternet/golift/onboard"
	"github.com/go-chi/render"
)

// ErrResponse renders any failure as a JSON body with a matching status.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(err error, status int, text string) render.Renderer {
	resp := &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     text,
	}
	if err != nil {
		resp.ErrorText = err.Error()
	}
	return resp
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(err, http.StatusBadRequest, "Invalid request.")
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(err, http.StatusUnauthorized, "Unauthorized.")
}

func ErrPermissionDenied(err error) render.Renderer {
	return newErrResponse(err, http.StatusForbidden, "Permission denied.")
}

func ErrRender(err error) render.Renderer {
	return newErrResponse(err, http.StatusInternalServerError, "Error rendering response.")
}

// ErrLift maps a lift failure to a status, a stopped controller is unavailable
// rather than broken.
func ErrLift(err error) render.Renderer {
	if errors.Is(err, onboard.ErrControllerStopped) {
		return newErrResponse(err, http.StatusServiceUnavailable, "Lift unavailable.")
	}
	return newErrResponse(err, http.StatusBadGateway, "Lift hardware error.")
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
