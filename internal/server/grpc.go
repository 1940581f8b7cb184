package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

const InvoiceServiceName = "invoices.v1.InvoiceService"

// InvoiceServiceServer is the gRPC face of the pipeline. Messages are
// well-known types so no generated code is needed on either side.
type InvoiceServiceServer interface {
	// ProcessInvoice takes {name, mimeType, content(base64)}.
	ProcessInvoice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetInvoice(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// ListInvoices takes {limit, offset} and answers {invoices: [...]}.
	ListInvoices(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportInvoices(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

var InvoiceService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: InvoiceServiceName,
	HandlerType: (*InvoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessInvoice", Handler: processInvoiceHandler},
		{MethodName: "GetInvoice", Handler: getInvoiceHandler},
		{MethodName: "ListInvoices", Handler: listInvoicesHandler},
		{MethodName: "ExportInvoices", Handler: exportInvoicesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoices/v1/invoice_service.proto",
}

func RegisterInvoiceServiceServer(s grpc.ServiceRegistrar, srv InvoiceServiceServer) {
	s.RegisterService(&InvoiceService_ServiceDesc, srv)
}

func processInvoiceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).ProcessInvoice(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InvoiceServiceName + "/ProcessInvoice"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).ProcessInvoice(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getInvoiceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).GetInvoice(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InvoiceServiceName + "/GetInvoice"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).GetInvoice(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listInvoicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).ListInvoices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InvoiceServiceName + "/ListInvoices"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).ListInvoices(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func exportInvoicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).ExportInvoices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + InvoiceServiceName + "/ExportInvoices"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).ExportInvoices(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// InvoiceServiceClient calls InvoiceService over any client connection.
type InvoiceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInvoiceServiceClient(cc grpc.ClientConnInterface) *InvoiceServiceClient {
	return &InvoiceServiceClient{cc: cc}
}

func (c *InvoiceServiceClient) ProcessInvoice(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+InvoiceServiceName+"/ProcessInvoice", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InvoiceServiceClient) GetInvoice(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+InvoiceServiceName+"/GetInvoice", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InvoiceServiceClient) ListInvoices(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+InvoiceServiceName+"/ListInvoices", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InvoiceServiceClient) ExportInvoices(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+InvoiceServiceName+"/ExportInvoices", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// InvoiceService implements InvoiceServiceServer over the same Deps as the HTTP router.
type InvoiceService struct {
	deps Deps
}

func NewInvoiceService(d Deps) *InvoiceService {
	return &InvoiceService{deps: d}
}

func (s *InvoiceService) ProcessInvoice(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	name, mimeType := fields["name"].GetStringValue(), fields["mimeType"].GetStringValue()
	if err := validateUploadMeta(name, mimeType); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	content, err := base64.StdEncoding.DecodeString(fields["content"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentError("content must be base64")
	}
	if s.deps.MaxUploadBytes > 0 {
		if verr := common.MaxBytes(s.deps.MaxUploadBytes)("content", content); verr != nil {
			return nil, status.Error(codes.ResourceExhausted, verr.Error())
		}
	}

	res, err := s.deps.Invoices.Process(ctx, ingest.Upload{
		Name:     name,
		MimeType: mimeType,
		Data:     content,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(res)
}

func (s *InvoiceService) GetInvoice(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.deps.Repo == nil {
		return nil, status.Error(codes.Unavailable, "storage is not configured")
	}
	if err := common.NewValidator().Field("id", in.GetValue(), common.UUID).Error(); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	id := uuid.MustParse(in.GetValue())
	inv, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(inv)
}

func (s *InvoiceService) ListInvoices(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Repo == nil {
		return nil, status.Error(codes.Unavailable, "storage is not configured")
	}
	invs, err := s.deps.Repo.List(ctx, structFilter(in))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]any{"invoices": invs})
}

func (s *InvoiceService) ExportInvoices(ctx context.Context, in *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if s.deps.Export == nil {
		return nil, status.Error(codes.Unavailable, "storage is not configured")
	}
	buf, err := s.deps.Export.ExportInvoicesXLSX(ctx, structFilter(in))
	if err != nil {
		return nil, grpcError(err)
	}
	return wrapperspb.Bytes(buf), nil
}

func structFilter(in *structpb.Struct) repository.ListFilter {
	fields := in.GetFields()
	return repository.ListFilter{
		Limit:  int(fields["limit"].GetNumberValue()),
		Offset: int(fields["offset"].GetNumberValue()),
	}
}

// toStruct round-trips v through its JSON form so the wire shape matches the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalError("encode response: " + err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, common.InternalError("encode response: " + err.Error())
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalError("encode response: " + err.Error())
	}
	return st, nil
}

// UnaryLogging tags each call with a request id (taken from x-request-id
// metadata when present) and logs its outcome.
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, rid := common.EnsureRequestID(ctx)

		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"req_id", rid,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// NewGRPCServer registers InvoiceService and the standard health service.
// The health status starts as SERVING.
func NewGRPCServer(d Deps, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	logger := d.logger()
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryLogging(logger))}, opts...)
	s := grpc.NewServer(opts...)

	RegisterInvoiceServiceServer(s, NewInvoiceService(d))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(InvoiceServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	logger.Debug("grpc.registered", "service", InvoiceServiceName)
	return s, hs
}
