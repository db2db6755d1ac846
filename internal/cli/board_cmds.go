package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mmynk/travelboard/internal/apiclient"
	"github.com/mmynk/travelboard/internal/calculator"
	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/internal/reorder"
)

func statusLabel(s models.BoardStatus) string {
	switch s {
	case models.BoardActive:
		return accentStyle.Render(string(s))
	case models.BoardCompleted:
		return successStyle.Render(string(s))
	}
	return pendingStyle.Render(string(s))
}

func dates(start, end string) string {
	if start == "" && end == "" {
		return "-"
	}
	return start + " → " + end
}

func (a *app) boards(ctx context.Context, args []string) error {
	fs := newFlags("boards", a.errOut)
	favorites := fs.Bool("favorites", false, "only starred boards")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if !a.client.HasToken(ctx) {
		return apiclient.ErrAuthRequired
	}
	boards, err := a.svc.ListBoards(ctx)
	if err != nil {
		return err
	}
	if *favorites {
		var starred []models.Board
		for _, b := range boards {
			if b.IsFavorite {
				starred = append(starred, b)
			}
		}
		boards = starred
	}
	if len(boards) == 0 {
		hint(a.out, "no boards yet. Run: travelboard board create --title \"My trip\"")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tBUDGET\tDATES\t")
	for _, b := range boards {
		title := b.Title
		if b.IsFavorite {
			title = "★ " + title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\t\n",
			b.ID, title, b.Status, b.Budget.StringFixed(2), b.Currency, dates(b.StartDate, b.EndDate))
	}
	return tw.Flush()
}

func (a *app) board(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("usage: travelboard board <show|create|update|delete|favorite>")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "show":
		return a.boardShow(ctx, rest)
	case "create":
		return a.boardCreate(ctx, rest)
	case "update":
		return a.boardUpdate(ctx, rest)
	case "delete", "rm":
		return a.boardDelete(ctx, rest)
	case "favorite", "fav":
		return a.boardFavorite(ctx, rest)
	}
	return usagef("unknown board subcommand: %s", sub)
}

func (a *app) boardShow(ctx context.Context, args []string) error {
	id, err := ids(args, "board")
	if err != nil {
		return err
	}
	b, err := a.svc.GetBoard(ctx, id[0])
	if err != nil {
		return err
	}

	header := []string{
		titleStyle.Render(b.Title) + "  " + statusLabel(b.Status),
	}
	if b.Description != "" {
		header = append(header, b.Description)
	}
	header = append(header,
		fmt.Sprintf("dates:    %s", dates(b.StartDate, b.EndDate)),
		fmt.Sprintf("budget:   %s %s (cards plan %s)", b.Budget.StringFixed(2), b.Currency, calculator.TotalCardBudget(b).StringFixed(2)),
		fmt.Sprintf("progress: %s", progressBar(calculator.Progress(b), 20)),
	)
	if len(b.Tags) > 0 {
		header = append(header, "tags:     "+strings.Join(b.Tags, ", "))
	}
	panel(a.out, header)

	for _, l := range b.SortedLists() {
		fmt.Fprintf(a.out, "\n%s %s\n", titleStyle.Render(l.Title), mutedStyle.Render(fmt.Sprintf("#%d", l.ID)))
		if len(l.Cards) == 0 {
			hint(a.out, "  no cards")
		}
		for _, c := range l.Cards {
			line := fmt.Sprintf("  %s %s", mutedStyle.Render(fmt.Sprintf("#%d", c.ID)), c.Title)
			if c.Budget.IsPositive() {
				line += fmt.Sprintf("  %s %s", c.Budget.StringFixed(2), b.Currency)
				if c.PeopleNumber > 1 {
					line += mutedStyle.Render(fmt.Sprintf(" (%s pp)", calculator.PerPersonCost(c).StringFixed(2)))
				}
			}
			if c.Category != "" {
				line += "  " + accentStyle.Render(string(c.Category))
			}
			if c.Location != nil && c.Location.Name != "" {
				line += "  @ " + c.Location.Name
			}
			if len(c.Subtasks) > 0 {
				line += mutedStyle.Render(fmt.Sprintf("  [%d/%d]", c.CompletedSubtasks(), len(c.Subtasks)))
			}
			fmt.Fprintln(a.out, line)
		}
	}
	return nil
}

func (a *app) boardCreate(ctx context.Context, args []string) error {
	f := newBoardFlags("board create", a.errOut)
	pos, err := parse(f.fs, args)
	if err != nil {
		return err
	}
	in, err := f.input()
	if err != nil {
		return err
	}
	if in.Title == nil && len(pos) > 0 {
		in.Title = models.Ptr(strings.Join(pos, " "))
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return usagef("usage: travelboard board create --title T [flags]")
	}

	b, err := a.svc.CreateBoard(ctx, in)
	if err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("created board #%d %s", b.ID, b.Title))
	return nil
}

func (a *app) boardUpdate(ctx context.Context, args []string) error {
	f := newBoardFlags("board update", a.errOut)
	pos, err := parse(f.fs, args)
	if err != nil {
		return err
	}
	id, err := ids(pos, "board")
	if err != nil {
		return err
	}
	in, err := f.input()
	if err != nil {
		return err
	}

	b, err := a.svc.UpdateBoard(ctx, id[0], in)
	if err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("updated board #%d %s", b.ID, b.Title))
	return nil
}

func (a *app) boardDelete(ctx context.Context, args []string) error {
	id, err := ids(args, "board")
	if err != nil {
		return err
	}
	if err := a.svc.DeleteBoard(ctx, id[0]); err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("deleted board #%d", id[0]))
	return nil
}

func (a *app) boardFavorite(ctx context.Context, args []string) error {
	id, err := ids(args, "board")
	if err != nil {
		return err
	}
	b, err := a.svc.ToggleFavorite(ctx, id[0])
	if err != nil {
		return err
	}
	if b.IsFavorite {
		ok(a.out, "★ "+b.Title)
	} else {
		ok(a.out, "unstarred "+b.Title)
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("usage: travelboard list <add|rename|rm>")
	}
	sub, rest := args[0], args[1:]
	fs := newFlags("list "+sub, a.errOut)
	color := fs.String("color", "", "list color")
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
		if len(pos) < 2 {
			return usagef("usage: travelboard list add <board> <title>")
		}
		in := models.ListInput{Title: models.Ptr(strings.Join(pos[1:], " "))}
		if isSet(fs, "color") {
			in.Color = color
		}
		l, err := a.svc.CreateList(ctx, id[0], in)
		if err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("added list #%d %s", l.ID, l.Title))
		return nil

	case "rename":
		id, err := ids(pos, "board", "list")
		if err != nil {
			return err
		}
		if len(pos) < 3 {
			return usagef("usage: travelboard list rename <board> <list> <title>")
		}
		in := models.ListInput{Title: models.Ptr(strings.Join(pos[2:], " "))}
		if isSet(fs, "color") {
			in.Color = color
		}
		l, err := a.svc.UpdateList(ctx, id[0], id[1], in)
		if err != nil {
			return err
		}
		ok(a.out, "renamed list to "+l.Title)
		return nil

	case "rm", "delete":
		id, err := ids(pos, "board", "list")
		if err != nil {
			return err
		}
		if err := a.svc.DeleteList(ctx, id[0], id[1]); err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("deleted list #%d", id[1]))
		return nil
	}
	return usagef("unknown list subcommand: %s", sub)
}

func (a *app) card(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("usage: travelboard card <add|edit|rm|move>")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		return a.cardAdd(ctx, rest)
	case "edit":
		return a.cardEdit(ctx, rest)
	case "rm", "delete":
		id, err := ids(rest, "board", "list", "card")
		if err != nil {
			return err
		}
		if err := a.svc.DeleteCard(ctx, id[0], id[1], id[2]); err != nil {
			return err
		}
		ok(a.out, fmt.Sprintf("deleted card #%d", id[2]))
		return nil
	case "move", "mv":
		return a.cardMove(ctx, rest)
	}
	return usagef("unknown card subcommand: %s", sub)
}

func (a *app) cardAdd(ctx context.Context, args []string) error {
	f := newCardFlags("card add", a.errOut)
	pos, err := parse(f.fs, args)
	if err != nil {
		return err
	}
	id, err := ids(pos, "board", "list")
	if err != nil {
		return err
	}
	if len(pos) < 3 {
		return usagef("usage: travelboard card add <board> <list> <title> [flags]")
	}
	in, err := f.input()
	if err != nil {
		return err
	}
	in.Title = models.Ptr(strings.Join(pos[2:], " "))

	c, err := a.svc.CreateCard(ctx, id[0], id[1], in)
	if err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("added card #%d %s", c.ID, c.Title))
	return nil
}

func (a *app) cardEdit(ctx context.Context, args []string) error {
	f := newCardFlags("card edit", a.errOut)
	title := f.fs.String("title", "", "card title")
	pos, err := parse(f.fs, args)
	if err != nil {
		return err
	}
	id, err := ids(pos, "board", "list", "card")
	if err != nil {
		return err
	}
	in, err := f.input()
	if err != nil {
		return err
	}
	if isSet(f.fs, "title") {
		in.Title = title
	}

	c, err := a.svc.UpdateCard(ctx, id[0], id[1], id[2], in)
	if err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("updated card #%d %s", c.ID, c.Title))
	return nil
}

// cardMove moves a card through the reorder coordinator, the same path the
// interactive board uses.
func (a *app) cardMove(ctx context.Context, args []string) error {
	fs := newFlags("card move", a.errOut)
	to := fs.Int64("to", 0, "destination list id (default: the card's list)")
	at := fs.Int("pos", -1, "zero-based position in the destination list (default: last)")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := ids(pos, "board", "card")
	if err != nil {
		return err
	}
	boardID, cardID := id[0], id[1]

	b, err := a.svc.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	layout := a.coord.Load(*b)
	src, found := layout.Locate(cardID)
	if !found {
		return fmt.Errorf("card #%d is not on board #%d", cardID, boardID)
	}

	dst := reorder.Position{ListID: src.ListID, Index: *at}
	if *to != 0 {
		dst.ListID = *to
	}
	col, found := layout.Column(dst.ListID)
	if !found {
		return fmt.Errorf("list #%d is not on board #%d", dst.ListID, boardID)
	}
	if dst.Index < 0 {
		dst.Index = len(col.Cards)
		if dst.ListID == src.ListID {
			dst.Index--
		}
	}

	d := reorder.Drop{CardID: cardID, Source: src, Destination: &dst}
	if _, changed := reorder.Plan(d); !changed {
		hint(a.out, "card is already there")
		return nil
	}
	if err := a.coord.Drop(ctx, boardID, d); err != nil {
		return err
	}
	ok(a.out, fmt.Sprintf("moved card #%d to %s at position %d", cardID, col.Title, dst.Index))
	return nil
}
