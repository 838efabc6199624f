// Package board is the wire contract of the kitchen board gRPC service:
// the service descriptor, registration and a client. Messages are
// google.protobuf.Struct so displays need no generated stubs.
package board

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName       = "tableside.kitchen.v1.KitchenBoard"
	ListTicketsMethod = "/" + ServiceName + "/ListTickets"
)

// KitchenBoard lists tickets for kitchen displays. Request fields: "stage"
// (comma separated or "all") and "table". The response carries "tickets"
// and "generated_at".
type KitchenBoard interface {
	ListTickets(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KitchenBoard)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTickets", Handler: listTicketsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tableside/kitchen/v1/board.proto",
}

// Register installs impl on s.
func Register(s grpc.ServiceRegistrar, impl KitchenBoard) {
	s.RegisterService(&serviceDesc, impl)
}

func listTicketsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KitchenBoard).ListTickets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListTicketsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KitchenBoard).ListTickets(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls KitchenBoard on a remote service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) ListTickets(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ListTicketsMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Query builds a ListTickets request. Empty values are left out.
func Query(stage, table string) *structpb.Struct {
	fields := map[string]*structpb.Value{}
	if stage != "" {
		fields["stage"] = structpb.NewStringValue(stage)
	}
	if table != "" {
		fields["table"] = structpb.NewStringValue(table)
	}
	return &structpb.Struct{Fields: fields}
}
