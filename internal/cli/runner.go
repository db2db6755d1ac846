// Package cli is the travelboard command line. Run routes a subcommand to
// its handler and maps the outcome onto an exit code: 0 on success, 1 when
// the command failed and 2 for a bad invocation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mmynk/travelboard/internal/config"
	"github.com/mmynk/travelboard/pkg/logging"
)

// Env is what a command runs against.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (e *Env) defaults() {
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Stdin == nil {
		e.Stdin = os.Stdin
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
}

// logToFile sends logs to tui.log in the home directory so they do not
// draw over the interactive screen.
func (e *Env) logToFile() func() {
	level := logging.ParseLevel(e.Config.Log.Level)
	if e.Config.Storage.Home == "" {
		e.Logger = logging.Discard()
		return func() {}
	}
	if err := os.MkdirAll(e.Config.Storage.Home, 0o700); err != nil {
		e.Logger = logging.Discard()
		return func() {}
	}
	f, err := os.OpenFile(filepath.Join(e.Config.Storage.Home, "tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		e.Logger = logging.Discard()
		return func() {}
	}
	e.Logger = logging.New(f, level)
	return func() { f.Close() }
}

type handler func(a *app, ctx context.Context, args []string) error

var commands = map[string]handler{
	"register":  (*app).register,
	"login":     (*app).login,
	"logout":    (*app).logout,
	"whoami":    (*app).whoami,
	"profile":   (*app).profile,
	"health":    (*app).health,
	"boards":    (*app).boards,
	"board":     (*app).board,
	"list":      (*app).list,
	"card":      (*app).card,
	"expenses":  (*app).expenses,
	"expense":   (*app).expense,
	"summary":   (*app).summary,
	"locations": (*app).locations,
	"location":  (*app).location,
	"invite":    (*app).invite,
	"sidebar":   (*app).sidebar,
	"tui":       (*app).tui,
}

// Run executes one subcommand and returns the process exit code.
func Run(ctx context.Context, args []string, env Env) int {
	env.defaults()
	if len(args) == 0 {
		PrintHelp(env.Stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(env.Stdout)
		return 0
	case "stub":
		return exitCode(env.Stderr, runStub(ctx, env, rest))
	}

	h, found := commands[cmd]
	if !found {
		fail(env.Stderr, "unknown subcommand: "+cmd)
		fmt.Fprintln(env.Stderr)
		PrintHelp(env.Stderr)
		return 2
	}

	if cmd == "tui" {
		closeLog := env.logToFile()
		defer closeLog()
	}

	a, err := openApp(ctx, env)
	if err != nil {
		fail(env.Stderr, err.Error())
		return 1
	}
	err = h(a, ctx, rest)
	if cerr := a.close(); cerr != nil {
		env.Logger.Warn("Closing storage failed", "error", cerr)
	}
	return exitCode(env.Stderr, err)
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fail(w, ue.msg)
		return 2
	}
	fail(w, explain(err))
	return 1
}

// PrintHelp writes the command summary.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `travelboard - plan trips on kanban boards

Usage:
  travelboard <subcommand> [args] [flags]

Account:
  register --email E --username U [--name N] [--password P]
  login [--email E] [--password P]     Prompts for missing values
  logout
  whoami
  profile [--first F] [--last L] [--username U] [--email E]
  health                               Check the API is up
  invite <email>

Boards:
  boards [--favorites]                 List your trips
  board show <board>
  board create --title T [--budget N --currency C --start D --end D ...]
  board update <board> [--title T --status S --budget N ...]
  board delete <board>
  board favorite <board>               Toggle the favourite star
  list add <board> <title> [--color C]
  list rename <board> <list> <title>
  list rm <board> <list>
  card add <board> <list> <title> [--budget N --category C --location L --lat X --lng Y ...]
  card edit <board> <list> <card> [same flags]
  card rm <board> <list> <card>
  card move <board> <card> --to <list> [--pos N]

Budget and map:
  expenses <board> [--category C --from D --to D]
  expense add <board> --title T --amount N [--category C --date D --notes S]
  expense edit <board> <expense> [same flags]
  expense rm <board> <expense>
  summary <board>
  locations <board>
  location add <board> <name> --lat X --lng Y
  location rm <board> <location>

Interface:
  tui <board>                          Interactive board
  sidebar [open|close|toggle]          Board sidebar preference
  stub [--addr A] [--seed=false]       Serve a local in-memory API

Environment:
  TRAVELBOARD_API_URL, TRAVELBOARD_HOME, TRAVELBOARD_STORAGE (sqlite|json|memory),
  TRAVELBOARD_TOKEN (overrides the stored access token), LOG_LEVEL
`)
}
