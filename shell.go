package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/CodedInternet/golift/onboard"
	"github.com/abiosoft/ishell"
)

// newShell builds the development shell. Every lift command goes through the
// controller like any remote request.
func newShell(ctx context.Context, controller *onboard.Controller) *ishell.Shell {
	shell := ishell.New()
	shell.Println("Lift development shell")
	shell.ShowPrompt(true)

	printState := func(c *ishell.Context, state onboard.LiftState) {
		c.Printf("dir:%s height:%.2f (L %.2f R %.2f) top:%v bottom:%v output:%.3f\n",
			state.Direction, state.Height, state.Left, state.Right,
			state.AtTop, state.AtBottom, state.Output)
	}

	submit := func(c *ishell.Context, req onboard.Request) {
		state, err := controller.Submit(ctx, req)
		if err != nil {
			c.Err(err)
			return
		}
		printState(c, state)
	}

	valueCmd := func(name, help string, kind onboard.RequestKind) *ishell.Cmd {
		return &ishell.Cmd{
			Name: name,
			Help: help,
			Func: func(c *ishell.Context) {
				if len(c.Args) != 1 {
					c.Err(errors.New("usage: " + help))
					return
				}
				value, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil {
					c.Err(err)
					return
				}
				submit(c, onboard.Request{Kind: kind, Value: value})
			},
		}
	}

	shell.AddCmd(valueCmd("ramp", "ramp <speed>", onboard.RequestMoveRamp))
	shell.AddCmd(valueCmd("dangerous", "dangerous <speed>", onboard.RequestMoveDangerous))
	shell.AddCmd(valueCmd("height", "height <height>", onboard.RequestSetHeight))

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop the lift",
		Func: func(c *ishell.Context) {
			submit(c, onboard.Request{Kind: onboard.RequestStop})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "Reads the current state of the lift",
		Func: func(c *ishell.Context) {
			submit(c, onboard.Request{Kind: onboard.RequestState})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			// disable the '>>>' for cleaner same line input.
			c.ShowPrompt(false)
			defer c.ShowPrompt(true) // yes, revert when done.

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			if err := createSuperuser(ENV.DB, email, password); err != nil {
				c.Err(err)
				return
			}
			c.Println("Superuser created")
		},
	})

	return shell
}
