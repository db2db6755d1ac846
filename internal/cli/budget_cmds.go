package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mmynk/travelboard/internal/calculator"
	"github.com/mmynk/travelboard/internal/models"
)

func (a *app) expenses(ctx context.Context, args []string) error {
	fs := newFlags("expenses", a.errOut)
	category := fs.String("category", "", "only this category")
	from := fs.String("from", "", "earliest date (YYYY-MM-DD)")
	to := fs.String("to", "", "latest date (YYYY-MM-DD)")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := ids(pos, "board")
	if err != nil {
		return err
	}
	filter := models.ExpenseFilter{
		Category: models.ExpenseCategory(strings.ToLower(*category)),
		DateFrom: *from,
		DateTo:   *to,
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return usagef("category: must be one of %s", categoryNames())
	}

	list, err := a.svc.ListExpenses(ctx, id[0], filter)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		hint(a.out, "no expenses")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tTITLE\t")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\t\n", e.ID, e.Date, e.Category, e.Amount.StringFixed(2), e.Currency, e.Title)
	}
	return tw.Flush()
}

type expenseFlags struct {
	fs       *flag.FlagSet
	title    *string
	amount   *string
	category *string
	date     *string
	notes    *string
}

func newExpenseFlags(name string, w io.Writer) *expenseFlags {
	fs := newFlags(name, w)
	return &expenseFlags{
		fs:       fs,
		title:    fs.String("title", "", "what was paid for"),
		amount:   fs.String("amount", "", "amount paid"),
		category: fs.String("category", "", categoryNames()),
		date:     fs.String("date", "", "date paid (YYYY-MM-DD, default today)"),
		notes:    fs.String("notes", "", "free text notes"),
	}
}

func (f *expenseFlags) input() (models.ExpenseInput, error) {
	var in models.ExpenseInput
	if isSet(f.fs, "title") {
		in.Title = f.title
	}
	if isSet(f.fs, "amount") {
		d, err := parseMoney("amount", *f.amount)
		if err != nil {
			return in, err
		}
		if d.IsNegative() {
			return in, usagef("amount: must not be negative")
		}
		in.Amount = d
	}
	if isSet(f.fs, "category") {
		c := models.ExpenseCategory(strings.ToLower(*f.category))
		if !c.Valid() {
			return in, usagef("category: must be one of %s", categoryNames())
		}
		in.Category = &c
	}
	if isSet(f.fs, "date") {
		in.Date = f.date
	}
	if isSet(f.fs, "notes") {
		in.Notes = f.notes
	}
	return in, nil
}

func categoryNames() string {
	names := make([]string, len(models.ExpenseCategories))
	for i, c := range models.ExpenseCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func (a *app) expense(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("usage: travelboard expense <add|edit|rm>")
	}
	sub, rest := args[0], args[1:]
	f := newExpenseFlags("expense "+sub, a.errOut)
	pos, err := parse(f.fs, rest)
	if err != nil {
		return err
	}

	switch sub {
	case "add":
		id, err := ids(pos, "board")
		if err != nil {
			return err
		}
		in, err := f.input()
		if err != nil {
			return err
		}
		if in.Title == nil || in.Amount == nil {
			return usagef("usage: travelboard expense add <board> --title T --amount N")
		}
		e, err := a.svc.CreateExpense(ctx, id[0], in)
		if err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("added expense #%d %s %s %s", e.ID, e.Title, e.Amount.StringFixed(2), e.Currency))
		return nil

	case "edit":
		id, err := ids(pos, "board", "expense")
		if err != nil {
			return err
		}
		in, err := f.input()
		if err != nil {
			return err
		}
		e, err := a.svc.UpdateExpense(ctx, id[0], id[1], in)
		if err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("updated expense #%d %s", e.ID, e.Title))
		return nil

	case "rm", "delete":
		id, err := ids(pos, "board", "expense")
		if err != nil {
			return err
		}
		if err := a.svc.DeleteExpense(ctx, id[0], id[1]); err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("deleted expense #%d", id[1]))
		return nil
	}
	return usagef("unknown expense subcommand: %s", sub)
}

func (a *app) summary(ctx context.Context, args []string) error {
	id, err := ids(args, "board")
	if err != nil {
		return err
	}
	s, err := a.svc.BudgetSummary(ctx, id[0])
	if err != nil {
		return err
	}

	lines := []string{
		titleStyle.Render("Budget"),
		fmt.Sprintf("budget:    %s", s.BoardBudget.StringFixed(2)),
		fmt.Sprintf("spent:     %s", s.ActualSpendTotal.StringFixed(2)),
		fmt.Sprintf("remaining: %s", s.Remaining.StringFixed(2)),
	}
	if over := calculator.OverBudget(*s); over.IsPositive() {
		lines = append(lines, errorStyle.Render("over budget by "+over.StringFixed(2)))
	}
	for _, c := range s.ByCategory {
		lines = append(lines, fmt.Sprintf("  %-11s %s", c.Category, c.Total.StringFixed(2)))
	}
	panel(a.out, lines)
	return nil
}

func (a *app) locations(ctx context.Context, args []string) error {
	id, err := ids(args, "board")
	if err != nil {
		return err
	}
	list, err := a.svc.ListLocations(ctx, id[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		hint(a.out, "no locations")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAT\tLNG\t")
	for _, l := range list {
		fmt.Fprintf(tw, "%d\t%s\t%.5f\t%.5f\t\n", l.ID, l.Name, l.Lat, l.Lng)
	}
	return tw.Flush()
}

func (a *app) location(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("usage: travelboard location <add|rm>")
	}
	sub, rest := args[0], args[1:]
	fs := newFlags("location "+sub, a.errOut)
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	pos, err := parse(fs, rest)
	if err != nil {
		return err
	}

	switch sub {
	case "add":
		id, err := ids(pos, "board")
		if err != nil {
			return err
		}
		if len(pos) < 2 || !isSet(fs, "lat") || !isSet(fs, "lng") {
			return usagef("usage: travelboard location add <board> <name> --lat X --lng Y")
		}
		if err := models.ValidateCoordinates(*lat, *lng); err != nil {
			return usageError{msg: err.Error()}
		}
		l, err := a.svc.CreateLocation(ctx, id[0], models.LocationInput{
			Name: models.Ptr(strings.Join(pos[1:], " ")),
			Lat:  lat,
			Lng:  lng,
		})
		if err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("pinned #%d %s", l.ID, l.Name))
		return nil

	case "rm", "delete":
		id, err := ids(pos, "board", "location")
		if err != nil {
			return err
		}
		if err := a.svc.DeleteLocation(ctx, id[0], id[1]); err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("deleted location #%d", id[1]))
		return nil
	}
	return usagef("unknown location subcommand: %s", sub)
}
