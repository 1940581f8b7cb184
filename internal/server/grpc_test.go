package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
)

func dialBuf(t *testing.T, d Deps) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(d)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func processRequest(t *testing.T, mime string, data []byte) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(map[string]any{
		"name":     "acme.png",
		"mimeType": mime,
		"content":  base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestGRPC_ProcessAndRead(t *testing.T) {
	conn := dialBuf(t, testDeps(t, &fakeOCR{resp: acmeResponse()}, nil))
	client := NewInvoiceServiceClient(conn)
	ctx := context.Background()

	out, err := client.ProcessInvoice(ctx, processRequest(t, "image/png", pngBytes(t)))
	if err != nil {
		t.Fatalf("ProcessInvoice: %v", err)
	}
	inv := out.GetFields()["invoice"].GetStructValue().GetFields()
	if inv["supplier"].GetStringValue() != "ACME Supplies" {
		t.Errorf("invoice = %v", inv)
	}
	id := inv["id"].GetStringValue()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id %q: %v", id, err)
	}

	got, err := client.GetInvoice(ctx, wrapperspb.String(id))
	if err != nil || got.GetFields()["invoiceNumber"].GetStringValue() != "INV-7" {
		t.Errorf("GetInvoice = %v, %v", got, err)
	}

	filter, _ := structpb.NewStruct(map[string]any{"limit": 5})
	list, err := client.ListInvoices(ctx, filter)
	if err != nil || len(list.GetFields()["invoices"].GetListValue().GetValues()) != 1 {
		t.Errorf("ListInvoices = %v, %v", list, err)
	}

	xlsx, err := client.ExportInvoices(ctx, filter)
	if err != nil || !bytes.HasPrefix(xlsx.GetValue(), []byte("PK")) {
		t.Errorf("ExportInvoices: %d bytes, %v", len(xlsx.GetValue()), err)
	}

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: InvoiceServiceName})
	if err != nil || hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %v, %v", hc, err)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	ctx := context.Background()

	conn := dialBuf(t, testDeps(t, &fakeOCR{resp: acmeResponse()}, nil))
	client := NewInvoiceServiceClient(conn)

	_, err := client.ProcessInvoice(ctx, processRequest(t, "text/plain", []byte("hello")))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("text upload code = %v", status.Code(err))
	}

	bad, _ := structpb.NewStruct(map[string]any{"content": "%%%"})
	if _, err := client.ProcessInvoice(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad base64 code = %v", status.Code(err))
	}

	if _, err := client.GetInvoice(ctx, wrapperspb.String(uuid.NewString())); status.Code(err) != codes.NotFound {
		t.Errorf("unknown id code = %v", status.Code(err))
	}
	if _, err := client.GetInvoice(ctx, wrapperspb.String("nope")); status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad id code = %v", status.Code(err))
	}

	empty := NewInvoiceServiceClient(dialBuf(t, testDeps(t, &fakeOCR{resp: &documentai.Response{}}, nil)))
	if _, err := empty.ProcessInvoice(ctx, processRequest(t, "image/png", pngBytes(t))); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("missing document code = %v", status.Code(err))
	}
}
