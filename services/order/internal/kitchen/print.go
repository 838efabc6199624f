package kitchen

import (
	"embed"
	"fmt"
	"io"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/template"
)

//go:embed assets
var Assets embed.FS

// Printer renders tickets as printable HTML.
type Printer struct {
	templates *template.Manager
	location  *time.Location
}

// NewPrinter returns a printer backed by the embedded ticket templates. The
// returned manager must be started before printing.
func NewPrinter(logger apt.Logger) (*Printer, *template.Manager) {
	mgr := template.NewManager(Assets, template.WithLogger(logger))
	return &Printer{templates: mgr, location: time.Local}, mgr
}

// PrintView is the data the ticket template renders.
type PrintView struct {
	Number        string
	OrderNumber   string
	TableNumber   string
	PrintedAt     string
	ConfirmedAt   string
	Lines         []TicketLine
	Notes         string
	Supplementary bool
	Reprint       int
}

func (p *Printer) Render(w io.Writer, t *Ticket, printedAt time.Time) error {
	tmpl, err := p.templates.GetByPath("ticket", "print")
	if err != nil {
		return fmt.Errorf("cannot load ticket template: %w", err)
	}

	view := PrintView{
		Number:        t.Number,
		OrderNumber:   t.OrderNumber,
		TableNumber:   t.TableNumber,
		PrintedAt:     printedAt.In(p.location).Format("02 Jan 2006 15:04"),
		ConfirmedAt:   t.ConfirmedAt.In(p.location).Format("15:04"),
		Lines:         t.Lines,
		Notes:         t.Notes,
		Supplementary: t.MergeIntoTableQueue,
		Reprint:       t.ReprintCount,
	}

	if err := tmpl.ExecuteTemplate(w, "print-ticket.html", view); err != nil {
		return fmt.Errorf("cannot render ticket %s: %w", t.Number, err)
	}
	return nil
}
