package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/appetiteclub/tableside/pkg/board"
)

type BoardOptions struct {
	Addr  string
	Stage string
	Table string
}

// Board prints the kitchen board served over gRPC.
func Board(ctx context.Context, w io.Writer, opts BoardOptions) error {
	conn, err := grpc.NewClient(opts.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.Addr, err)
	}
	defer conn.Close()

	resp, err := board.NewClient(conn).ListTickets(ctx, board.Query(opts.Stage, opts.Table))
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}

	RenderBoard(w, resp)
	return nil
}

// RenderBoard writes the tickets of a ListTickets response as a table.
func RenderBoard(w io.Writer, resp *structpb.Struct) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKET\tTABLE\tSTAGE\tURGENCY\tWAITING\tITEMS")

	tickets := resp.GetFields()["tickets"].GetListValue().GetValues()
	for _, v := range tickets {
		t := v.GetStructValue().GetFields()
		items := 0
		for _, l := range t["lines"].GetListValue().GetValues() {
			items += int(l.GetStructValue().GetFields()["quantity"].GetNumberValue())
		}
		waiting := int(t["elapsed_seconds"].GetNumberValue()) / 60
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dm\t%d\n",
			t["number"].GetStringValue(),
			t["table_number"].GetStringValue(),
			t["stage"].GetStringValue(),
			t["urgency"].GetStringValue(),
			waiting,
			items,
		)
	}

	tw.Flush()
	fmt.Fprintf(w, "%d tickets at %s\n", len(tickets), resp.GetFields()["generated_at"].GetStringValue())
}
