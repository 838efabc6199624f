package kitchen

import (
	"context"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/appetiteclub/tableside/pkg/board"
	"github.com/appetiteclub/tableside/pkg/enums/cookstage"
	"github.com/appetiteclub/tableside/services/order/internal/fault"
)

// BoardServer serves the kitchen board over gRPC.
type BoardServer struct {
	dispatcher *Dispatcher
	logger     apt.Logger
}

func NewBoardServer(dispatcher *Dispatcher, logger apt.Logger) *BoardServer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BoardServer{dispatcher: dispatcher, logger: logger}
}

// RegisterGRPCService satisfies apt.GRPCServiceRegistrar.
func (s *BoardServer) RegisterGRPCService(server *grpc.Server) {
	board.Register(server, s)
}

// ListTickets accepts optional "stage" (comma separated, or "all") and
// "table" fields. Without a stage it returns the tickets still cooking.
func (s *BoardServer) ListTickets(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := boardFilter(req)
	if err != nil {
		return nil, grpcError(err)
	}

	views, err := s.dispatcher.Board(ctx, filter)
	if err != nil {
		s.logger.Error("cannot list board tickets", "error", err)
		return nil, grpcError(err)
	}

	tickets := make([]any, 0, len(views))
	for _, v := range views {
		tickets = append(tickets, boardTicket(v))
	}

	out, err := structpb.NewStruct(map[string]any{
		"tickets":      tickets,
		"generated_at": s.dispatcher.now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "cannot encode board: %v", err)
	}
	return out, nil
}

func boardFilter(req *structpb.Struct) (TicketFilter, error) {
	filter := TicketFilter{Stages: []string{cookstage.Stages.New.Name, cookstage.Stages.Cooking.Name}}
	if req == nil {
		return filter, nil
	}
	fields := req.GetFields()

	if v, ok := fields["stage"]; ok {
		stages, err := ParseStages(v.GetStringValue())
		if err != nil {
			return filter, err
		}
		filter.Stages = stages
	}
	if v, ok := fields["table"]; ok {
		filter.TableNumber = strings.TrimSpace(v.GetStringValue())
	}
	return filter, nil
}

// ParseStages reads a comma separated stage list. "all" or an empty value
// selects the active stages.
func ParseStages(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil, nil
	}
	var stages []string
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s := cookstage.ByName(part)
		if s == nil {
			return nil, fault.InvalidInput("unknown stage %q", strings.TrimSpace(part)).
				WithDetail("stage", "invalid", "stage must be new, cooking, ready or cancelled")
		}
		stages = append(stages, s.Name)
	}
	return stages, nil
}

func boardTicket(v TicketView) map[string]any {
	lines := make([]any, 0, len(v.Lines))
	for _, l := range v.Lines {
		lines = append(lines, map[string]any{
			"name":         l.Name,
			"category":     l.Category,
			"quantity":     l.Quantity,
			"instructions": l.Instructions,
		})
	}
	return map[string]any{
		"id":                     v.ID.String(),
		"number":                 v.Number,
		"order_id":               v.OrderID.String(),
		"table_number":           v.TableNumber,
		"stage":                  v.Stage,
		"urgency":                string(v.Urgency),
		"elapsed_seconds":        v.ElapsedSeconds,
		"merge_into_table_queue": v.MergeIntoTableQueue,
		"notes":                  v.Notes,
		"lines":                  lines,
	}
}

func grpcError(err error) error {
	msg := err.Error()
	switch fault.KindOf(err) {
	case fault.KindInvalidInput, fault.KindUnavailable:
		return status.Error(codes.InvalidArgument, msg)
	case fault.KindNotFound:
		return status.Error(codes.NotFound, msg)
	case fault.KindConflict:
		return status.Error(codes.FailedPrecondition, msg)
	case fault.KindForbidden:
		return status.Error(codes.PermissionDenied, msg)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
