package main

import (
	"errors"
	"net/http"

	"github.com/CodedInternet/golift/onboard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	uuid "github.com/satori/go.uuid"
)

// MovePayload carries the value for a ramp, dangerous or height request.
type MovePayload struct {
	Value *float64 `json:"value"`
}

func (m *MovePayload) Bind(r *http.Request) error {
	if m.Value == nil {
		return errors.New("value is required")
	}
	return nil
}

type liftAPI struct {
	controller *onboard.Controller
}

func liftRoutes(controller *onboard.Controller) chi.Router {
	api := &liftAPI{controller: controller}

	r := chi.NewRouter()
	r.Get("/", api.state)
	r.Post("/ramp", api.move(onboard.RequestMoveRamp))
	r.Post("/dangerous", api.move(onboard.RequestMoveDangerous))
	r.Post("/height", api.move(onboard.RequestSetHeight))
	r.Post("/stop", api.stop)
	return r
}

func (api *liftAPI) submit(w http.ResponseWriter, r *http.Request, req onboard.Request) {
	req.ID = uuid.NewV4()
	w.Header().Set("X-Lift-Request", req.ID.String())

	state, err := api.controller.Submit(r.Context(), req)
	if err != nil {
		render.Render(w, r, ErrLift(err))
		return
	}

	render.JSON(w, r, state)
}

func (api *liftAPI) state(w http.ResponseWriter, r *http.Request) {
	api.submit(w, r, onboard.Request{Kind: onboard.RequestState})
}

func (api *liftAPI) stop(w http.ResponseWriter, r *http.Request) {
	api.submit(w, r, onboard.Request{Kind: onboard.RequestStop})
}

func (api *liftAPI) move(kind onboard.RequestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := &MovePayload{}
		if err := render.Bind(r, data); err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}

		api.submit(w, r, onboard.Request{Kind: kind, Value: *data.Value})
	}
}
