package kitchen

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestPrinterRender(t *testing.T) {
	printer, mgr := NewPrinter(nil)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	printer.location = time.UTC

	ticket := DeriveTicket(confirmedOrder("ORD-20260301-0009"))
	ticket.MergeIntoTableQueue = true
	ticket.ReprintCount = 2

	var buf bytes.Buffer
	if err := printer.Render(&buf, ticket, fixedNow); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"KOT-ORD-20260301-0009",
		"Table 4",
		"01 Mar 2026 20:00",
		"SUPPLEMENTARY ORDER",
		"REPRINT #2",
		"no onions",
		"+ cheese",
		"(sides)",
		"birthday table",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered ticket missing %q", want)
		}
	}
}

func TestPrinterRenderPlain(t *testing.T) {
	printer, mgr := NewPrinter(nil)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	o := confirmedOrder("ORD-20260301-0010")
	o.Notes = ""
	var buf bytes.Buffer
	if err := printer.Render(&buf, DeriveTicket(o), fixedNow); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()

	for _, unwanted := range []string{"SUPPLEMENTARY ORDER", "REPRINT", "Notes:"} {
		if strings.Contains(html, unwanted) {
			t.Errorf("rendered ticket should not contain %q", unwanted)
		}
	}
}
