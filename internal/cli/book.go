package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/dhd/internal/addressbook"
	"github.com/roach88/dhd/internal/gate"
)

// BookOptions holds flags for the book command.
type BookOptions struct {
	*RootOptions
	Scroll int // pages the window down this many rows
	Select int // 1-based row of the visible window, 0 for none
}

// BookEntry is one destination row.
type BookEntry struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Selected bool   `json:"selected,omitempty"`
}

// BookPage is the visible window of the address book.
type BookPage struct {
	Total         int         `json:"total"`
	Top           int         `json:"top"`
	CanScrollUp   bool        `json:"can_scroll_up"`
	CanScrollDown bool        `json:"can_scroll_down"`
	Entries       []BookEntry `json:"entries"`
	Selected      *BookEntry  `json:"selected,omitempty"`
}

// NewBookCommand creates the book command.
func NewBookCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BookOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Browse the address book",
		Long: `Show a window of the destination catalog.

The window holds five destinations. --scroll moves it down one row per
step and stops at the end of the catalog. --select marks a row of the
visible window (1-5).

Examples:
  dhd book
  dhd book --scroll 3
  dhd book --scroll 2 --select 1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Scroll, "scroll", 0, "scroll the window down this many rows")
	cmd.Flags().IntVar(&opts.Select, "select", 0, "select a row of the visible window (1-5)")

	return cmd
}

func runBook(opts *BookOptions, cmd *cobra.Command) error {
	if opts.Scroll < 0 {
		return NewExitError(ExitCommandError, "--scroll must not be negative")
	}
	if opts.Select < 0 || opts.Select > addressbook.PageSize {
		return NewExitError(ExitCommandError, fmt.Sprintf("--select must be between 1 and %d", addressbook.PageSize))
	}

	cat, err := loadCatalog(opts.Config.Catalog.Dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	book := addressbook.New(cat.All())
	for i := 0; i < opts.Scroll; i++ {
		if !book.ScrollDown() {
			break
		}
	}

	if opts.Select > 0 {
		if _, ok := book.SelectVisible(opts.Select - 1); !ok {
			return NewExitError(ExitFailure, fmt.Sprintf("row %d is empty", opts.Select))
		}
	}

	page := buildPage(book)
	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Respond(CLIResponse{Status: "ok", Data: page})
	}
	return f.Success(renderPage(page))
}

func buildPage(b *addressbook.Book) BookPage {
	page := BookPage{
		Total:         b.Len(),
		Top:           b.TopItem(),
		CanScrollUp:   b.CanScrollUp(),
		CanScrollDown: b.CanScrollDown(),
		Entries:       []BookEntry{},
	}

	selected, hasSelection := b.Selected()
	for i, d := range b.Visible() {
		entry := BookEntry{
			Index:    page.Top + i,
			ID:       d.ID,
			Name:     d.Name,
			Address:  d.Address.String(),
			Selected: hasSelection && d.ID == selected.ID,
		}
		if entry.Selected {
			sel := entry
			page.Selected = &sel
		}
		page.Entries = append(page.Entries, entry)
	}
	return page
}

func renderPage(p BookPage) string {
	rows := []string{
		headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
			idColumn.Render("ID"), nameColumn.Render("NAME"), "ADDRESS")),
	}

	if p.CanScrollUp {
		rows = append(rows, dimStyle.Render(fmt.Sprintf("  ▲ %d more", p.Top)))
	}
	for _, e := range p.Entries {
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			idColumn.Render(e.ID), nameColumn.Render(e.Name), renderGlyphs(gate.ParseGlyphs(e.Address)))
		if e.Selected {
			row = selectStyle.Render(row)
		}
		rows = append(rows, row)
	}
	if len(p.Entries) == 0 {
		rows = append(rows, dimStyle.Render("(catalog is empty)"))
	}
	if p.CanScrollDown {
		below := p.Total - p.Top - len(p.Entries)
		rows = append(rows, dimStyle.Render(fmt.Sprintf("  ▼ %d more", below)))
	}

	if p.Selected != nil {
		rows = append(rows, "",
			fmt.Sprintf("%s %s", titleStyle.Render("selected"), p.Selected.Name),
			dimStyle.Render("dial with: dhd dial --destination "+p.Selected.ID))
	}
	return strings.TrimRight(lipgloss.JoinVertical(lipgloss.Left, rows...), " ")
}
