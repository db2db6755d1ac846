package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/travelboard/internal/models"
)

// usageError marks a bad invocation; Run exits with 2 for it.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func newFlags(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

// parse parses flags anywhere on the command line and returns the
// positional arguments in order.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, usageError{msg: "usage: travelboard " + fs.Name()}
			}
			return nil, usageError{msg: err.Error()}
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// isSet reports whether a flag was given explicitly.
func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("%s: not a valid id: %q", what, s)
	}
	return id, nil
}

// ids parses n leading positional ids named by what.
func ids(pos []string, what ...string) ([]int64, error) {
	if len(pos) < len(what) {
		return nil, usagef("missing %s", strings.Join(what[len(pos):], ", "))
	}
	out := make([]int64, len(what))
	for i, w := range what {
		id, err := parseID(w, pos[i])
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func parseMoney(what, s string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, usagef("%s: not a number: %q", what, s)
	}
	return &d, nil
}

func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// cardFlags are shared by card add and card edit.
type cardFlags struct {
	fs          *flag.FlagSet
	description *string
	budget      *string
	people      *int
	category    *string
	due         *string
	tags        *string
	location    *string
	lat, lng    *float64
}

func newCardFlags(name string, w io.Writer) *cardFlags {
	fs := newFlags(name, w)
	return &cardFlags{
		fs:          fs,
		description: fs.String("description", "", "card description"),
		budget:      fs.String("budget", "", "planned cost"),
		people:      fs.Int("people", 1, "number of people"),
		category:    fs.String("category", "", "flight, hotel, food, activity, romantic or family"),
		due:         fs.String("due", "", "due date (YYYY-MM-DD)"),
		tags:        fs.String("tags", "", "comma separated tags"),
		location:    fs.String("location", "", "place name"),
		lat:         fs.Float64("lat", 0, "latitude"),
		lng:         fs.Float64("lng", 0, "longitude"),
	}
}

// input builds a payload from the flags that were set.
func (c *cardFlags) input() (models.CardInput, error) {
	var in models.CardInput
	if isSet(c.fs, "description") {
		in.Description = c.description
	}
	if isSet(c.fs, "budget") {
		d, err := parseMoney("budget", *c.budget)
		if err != nil {
			return in, err
		}
		in.Budget = d
	}
	if isSet(c.fs, "people") {
		if *c.people < 1 {
			return in, usagef("people: must be at least 1")
		}
		in.PeopleNumber = c.people
	}
	if isSet(c.fs, "category") {
		in.Category = models.Ptr(models.CardCategory(*c.category).Normalize())
	}
	if isSet(c.fs, "due") {
		in.DueDate = c.due
	}
	if isSet(c.fs, "tags") {
		in.Tags = splitTags(*c.tags)
	}
	if isSet(c.fs, "location") {
		if err := models.ValidateCoordinates(*c.lat, *c.lng); err != nil {
			return in, usageError{msg: err.Error()}
		}
		in.Location = &models.CardLocation{Name: *c.location, Lat: *c.lat, Lng: *c.lng}
	}
	return in, nil
}

// boardFlags are shared by board create and board update.
type boardFlags struct {
	fs          *flag.FlagSet
	title       *string
	description *string
	status      *string
	budget      *string
	currency    *string
	start, end  *string
	tags        *string
}

func newBoardFlags(name string, w io.Writer) *boardFlags {
	fs := newFlags(name, w)
	return &boardFlags{
		fs:          fs,
		title:       fs.String("title", "", "trip title"),
		description: fs.String("description", "", "trip description"),
		status:      fs.String("status", "", "planning, active or completed"),
		budget:      fs.String("budget", "", "total budget"),
		currency:    fs.String("currency", "", "ISO currency code"),
		start:       fs.String("start", "", "start date (YYYY-MM-DD)"),
		end:         fs.String("end", "", "end date (YYYY-MM-DD)"),
		tags:        fs.String("tags", "", "comma separated tags"),
	}
}

func (b *boardFlags) input() (models.BoardInput, error) {
	var in models.BoardInput
	if isSet(b.fs, "title") {
		in.Title = b.title
	}
	if isSet(b.fs, "description") {
		in.Description = b.description
	}
	if isSet(b.fs, "status") {
		s := models.BoardStatus(strings.ToLower(*b.status))
		if !s.Valid() {
			return in, usagef("status: must be planning, active or completed")
		}
		in.Status = &s
	}
	if isSet(b.fs, "budget") {
		d, err := parseMoney("budget", *b.budget)
		if err != nil {
			return in, err
		}
		in.Budget = d
	}
	if isSet(b.fs, "currency") {
		in.Currency = models.Ptr(strings.ToUpper(*b.currency))
	}
	if isSet(b.fs, "start") {
		in.StartDate = b.start
	}
	if isSet(b.fs, "end") {
		in.EndDate = b.end
	}
	if isSet(b.fs, "tags") {
		in.Tags = splitTags(*b.tags)
	}
	return in, nil
}
