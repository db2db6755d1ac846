package cli

import (
	"context"
	"fmt"

	"github.com/mmynk/travelboard/internal/apiclient"
	"github.com/mmynk/travelboard/internal/stubapi"
	"github.com/mmynk/travelboard/internal/tui"
)

func (a *app) sidebar(ctx context.Context, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "show":
	case "open":
		a.ui.SetSidebarOpen(ctx, true)
	case "close":
		a.ui.SetSidebarOpen(ctx, false)
	case "toggle":
		a.ui.ToggleSidebar(ctx)
	default:
		return usagef("usage: travelboard sidebar [open|close|toggle]")
	}
	if a.ui.Snapshot().SidebarOpen {
		ok(a.out, "sidebar open")
	} else {
		ok(a.out, "sidebar closed")
	}
	return nil
}

func (a *app) tui(ctx context.Context, args []string) error {
	id, err := ids(args, "board")
	if err != nil {
		return err
	}
	if !a.client.HasToken(ctx) {
		return apiclient.ErrAuthRequired
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := a.svc.Cache().Subscribe(ctx)
	return tui.Run(ctx, tui.New(ctx, id[0], a.svc, a.coord, a.ui, events))
}

// runStub serves the in-memory backend until ctx is cancelled.
func runStub(ctx context.Context, env Env, args []string) error {
	fs := newFlags("stub", env.Stderr)
	addr := fs.String("addr", env.Config.Stub.Addr, "listen address")
	seed := fs.Bool("seed", env.Config.Stub.Seed, "create the demo account and board")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	srv := stubapi.New(stubapi.Config{
		Secret: env.Config.Stub.Secret,
		Logger: env.Logger,
	})
	if *seed {
		if _, err := srv.Seed(ctx); err != nil {
			return err
		}
		hint(env.Stdout, fmt.Sprintf("demo login: %s / %s", stubapi.DemoEmail, stubapi.DemoPassword))
	}
	hint(env.Stdout, fmt.Sprintf("point the client at it with TRAVELBOARD_API_URL=http://%s", *addr))
	return srv.ListenAndServe(ctx, *addr)
}
