package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CodedInternet/golift/logger"
	"github.com/CodedInternet/golift/onboard"
	"github.com/gorilla/websocket"
	uuid "github.com/satori/go.uuid"
)

const JOG_STOP_TIMEOUT = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type jogReply struct {
	onboard.LiftState
	Error string `json:"error,omitempty"`
}

// JogHandler drives the lift through the ramp from a websocket. Every text frame is a
// speed, answered with the lift state. The lift is stopped when the socket goes away
// for any reason.
func JogHandler(controller *onboard.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("jog upgrade: %v", err)
			return
		}
		defer conn.Close()

		session := uuid.NewV4()
		logger.Infof("jog session %s opened from %s", session, r.RemoteAddr)

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), JOG_STOP_TIMEOUT)
			defer cancel()
			if _, err := controller.Submit(ctx, onboard.Request{ID: session, Kind: onboard.RequestStop}); err != nil {
				logger.Errorf("jog session %s: stopping lift: %v", session, err)
			}
			logger.Infof("jog session %s closed", session)
		}()

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warnf("jog session %s read: %v", session, err)
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}

			var reply jogReply
			speed, err := strconv.ParseFloat(strings.TrimSpace(string(msg)), 64)
			if err != nil {
				reply.Error = "speed must be a number"
			} else {
				reply.LiftState, err = controller.Submit(r.Context(), onboard.Request{
					ID:    session,
					Kind:  onboard.RequestMoveRamp,
					Value: speed,
				})
				if err != nil {
					reply.Error = err.Error()
				}
			}

			if err := conn.WriteJSON(reply); err != nil {
				logger.Warnf("jog session %s write: %v", session, err)
				return
			}
		}
	}
}
