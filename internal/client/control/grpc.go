package control

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vaxtrace/vaxsync/internal/logging"
)

const (
	serviceName    = "vaxsync.control.v1.Control"
	callFullMethod = "/" + serviceName + "/Call"
)

// ControlServer is the gRPC face of the worker. Messages are
// google.protobuf.Struct: {"type": ...} in, a Response object out.
type ControlServer interface {
	Call(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaxsync/control/v1/control.proto",
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: callFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Call(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register adds the control service to s.
func Register(s *grpc.Server, srv ControlServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Server serves a Worker over gRPC.
type Server struct {
	address string
	worker  *Worker
	logger  logging.Logger
}

func NewServer(address string, w *Worker, l logging.Logger) *Server {
	return &Server{address: address, worker: w, logger: l.With("module", "control_grpc")}
}

func (s *Server) Call(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t := in.GetFields()["type"].GetStringValue()
	if t == "" {
		return nil, status.Error(codes.InvalidArgument, "missing request type")
	}

	resp, err := s.worker.Call(ctx, Type(t))
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return encodeResponse(resp)
}

func (s *Server) logInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "duration", time.Since(start), "code", status.Code(err))
	return resp, err
}

// NewGRPCServer builds a grpc.Server with the control service registered.
func (s *Server) NewGRPCServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.logInterceptor))
	Register(srv, s)
	return srv
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewGRPCServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping control server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting control server", "address", lis.Addr().String())
	return srv.Serve(lis)
}

// Client calls a remote Worker.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the agent's control endpoint. Extra options are appended
// to an insecure transport, which is fine for the loopback endpoint.
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Call(ctx context.Context, t Type) (Response, error) {
	in, err := structpb.NewStruct(map[string]any{"type": string(t)})
	if err != nil {
		return Response{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, callFullMethod, in, out); err != nil {
		return Response{}, err
	}
	return decodeResponse(out), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func encodeResponse(r Response) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":            r.ID,
		"success":       r.Success,
		"error":         r.Error,
		"resolved":      r.Resolved,
		"failed":        r.Failed,
		"pending":       r.Pending,
		"resolvedTotal": r.ResolvedTotal,
		"online":        r.Online,
	})
}

func decodeResponse(s *structpb.Struct) Response {
	f := s.GetFields()
	return Response{
		ID:            f["id"].GetStringValue(),
		Success:       f["success"].GetBoolValue(),
		Error:         f["error"].GetStringValue(),
		Resolved:      int(f["resolved"].GetNumberValue()),
		Failed:        int(f["failed"].GetNumberValue()),
		Pending:       int(f["pending"].GetNumberValue()),
		ResolvedTotal: int(f["resolvedTotal"].GetNumberValue()),
		Online:        f["online"].GetBoolValue(),
	}
}
