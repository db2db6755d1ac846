package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/internal/state"
)

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return line, nil
}

func (a *app) signedIn(ctx context.Context, resp *models.AuthResponse, verb string) {
	a.session.SetUser(ctx, state.UserFrom(resp.User), resp.Tokens.Access)
	ok(a.out, fmt.Sprintf("%s as %s", verb, resp.User.Email))
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register", a.errOut)
	email := fs.String("email", "", "email address")
	username := fs.String("username", "", "login handle")
	name := fs.String("name", "", "full name")
	password := fs.String("password", "", "password (prompted when empty)")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" || *username == "" {
		return usagef("usage: travelboard register --email E --username U [--name N] [--password P]")
	}
	if *password == "" {
		p, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	resp, err := a.client.Register(ctx, models.RegisterRequest{
		Username:        *username,
		Email:           *email,
		FullName:        *name,
		Password:        *password,
		PasswordConfirm: *password,
	})
	if err != nil {
		return err
	}
	a.signedIn(ctx, resp, "registered and logged in")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login", a.errOut)
	email := fs.String("email", "", "email address (prompted when empty)")
	password := fs.String("password", "", "password (prompted when empty)")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		e, err := a.prompt("Email: ")
		if err != nil {
			return err
		}
		*email = e
	}
	if *password == "" {
		p, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	a.session.SetLoading(true)
	resp, err := a.client.Login(ctx, *email, *password)
	a.session.SetLoading(false)
	if err != nil {
		return err
	}
	a.signedIn(ctx, resp, "logged in")
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	if a.tokens.FromEnv() {
		ok(a.out, "token is provided by TRAVELBOARD_TOKEN (nothing to delete)")
		return nil
	}
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.session.ClearUser(ctx)
	ok(a.out, "logged out")
	return nil
}

func (a *app) whoami(ctx context.Context, _ []string) error {
	user, err := a.svc.Me(ctx)
	if err != nil {
		return err
	}
	lines := []string{
		titleStyle.Render(user.FullName()),
		fmt.Sprintf("email:    %s", user.Email),
		fmt.Sprintf("username: %s", user.Username),
		fmt.Sprintf("id:       %d", user.ID),
	}
	source := "stored"
	if a.tokens.FromEnv() {
		source = "TRAVELBOARD_TOKEN"
	}
	lines = append(lines, fmt.Sprintf("token:    %s", source))
	if exp, err := a.tokens.Expiry(ctx); err == nil && !exp.IsZero() {
		lines = append(lines, fmt.Sprintf("expires:  %s", exp.Local().Format(time.RFC3339)))
	}
	panel(a.out, lines)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := newFlags("profile", a.errOut)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	username := fs.String("username", "", "login handle")
	email := fs.String("email", "", "email address")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	var in models.ProfileInput
	if isSet(fs, "first") {
		in.FirstName = first
	}
	if isSet(fs, "last") {
		in.LastName = last
	}
	if isSet(fs, "username") {
		in.Username = username
	}
	if isSet(fs, "email") {
		in.Email = email
	}
	if in == (models.ProfileInput{}) {
		return usagef("usage: travelboard profile [--first F] [--last L] [--username U] [--email E]")
	}

	user, err := a.svc.UpdateProfile(ctx, in)
	if err != nil {
		return err
	}
	a.session.SetUser(ctx, state.UserFrom(*user), a.tokens.AccessToken(ctx))
	ok(a.out, "profile updated: "+user.FullName())
	return nil
}

func (a *app) health(ctx context.Context, _ []string) error {
	h, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("%s: %s (%s)", a.client.BaseURL(), h.Status, h.Message))
	if a.client.HasToken(ctx) && !h.Authenticated {
		hint(a.out, "stored token was not accepted. Run: travelboard login")
	}
	return nil
}

func (a *app) invite(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usagef("usage: travelboard invite <email>")
	}
	resp, err := a.svc.InviteUser(ctx, args[0])
	if err != nil {
		return err
	}
	ok(a.out, resp.Message)
	return nil
}
