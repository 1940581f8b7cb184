package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/documentai"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/export"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
	"github.com/joseph-ayodele/invoice-tracker/internal/invoices"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

type fakeOCR struct {
	resp *documentai.Response
}

func (f *fakeOCR) Process(context.Context, []byte, string) (*documentai.Response, error) {
	return f.resp, nil
}

func acmeResponse() *documentai.Response {
	return &documentai.Response{Document: &documentai.Document{
		Text: "ACME Supplies\nInvoice INV-7\nCoffee beans $12.00",
		Entities: []documentai.Entity{
			{Type: "supplier_name", MentionText: "ACME Supplies"},
			{Type: "invoice_id", MentionText: "INV-7"},
			{Type: "line_item", MentionText: "Coffee beans $12.00"},
		},
	}}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testDeps(t *testing.T, ocr documentai.Processor, v *ingest.Validator) Deps {
	t.Helper()
	ctx := context.Background()
	db, err := ConnectDB(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "api.db")}, nil)
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	t.Cleanup(db.Close)
	repo := repository.NewInvoiceRepository(db, nil)
	return Deps{
		Invoices: invoices.NewService(v, ocr, nil, repo, nil),
		Repo:     repo,
		Export:   export.NewService(repo, nil),
		DocAI: common.DocumentAIConfig{
			ProjectID:   "demo",
			Location:    "eu",
			ProcessorID: "abc123",
		},
	}
}

// uploadRequest builds a multipart request; an empty field name sends a form without a file.
func uploadRequest(t *testing.T, field, name, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	} else {
		_ = mw.WriteField("note", "nothing attached")
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/process-invoice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) ProcessingResult {
	t.Helper()
	var out ProcessingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestProcessInvoice_Success(t *testing.T) {
	d := testDeps(t, &fakeOCR{resp: acmeResponse()}, nil)
	h := NewRouter(d)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "file", "acme.png", "image/png", pngBytes(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	out := decodeResult(t, rec)
	if !out.Success || out.Data == nil || out.Error != "" {
		t.Fatalf("result = %+v", out)
	}
	if entity.Deref(out.Data.Supplier) != "ACME Supplies" || entity.Deref(out.Data.InvoiceNumber) != "INV-7" {
		t.Errorf("invoice = %+v", out.Data)
	}
	if out.Summary == nil || len(out.Summary.Categories) != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}

	// the stored record is readable through the other endpoints
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/"+out.Data.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got entity.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.ID != out.Data.ID {
		t.Errorf("get = %+v, %v", got, err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices?limit=10", nil))
	var list struct {
		Invoices []entity.Invoice `json:"invoices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Invoices) != 1 {
		t.Errorf("list = %s, %v", rec.Body, err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/export.xlsx", nil))
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Errorf("export status = %d, %d bytes", rec.Code, rec.Body.Len())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("export content type = %s", ct)
	}
}

func TestProcessInvoice_Errors(t *testing.T) {
	pngUpload := func(field string) func(t *testing.T) *http.Request {
		return func(t *testing.T) *http.Request {
			return uploadRequest(t, field, "a.png", "image/png", pngBytes(t))
		}
	}
	tests := []struct {
		name     string
		ocr      *fakeOCR
		limits   ingest.Limits
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "no file",
			ocr:      &fakeOCR{resp: acmeResponse()},
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "", "", "", nil) },
			wantCode: http.StatusBadRequest,
			wantErr:  "No file uploaded",
		},
		{
			name:     "wrong field",
			ocr:      &fakeOCR{resp: acmeResponse()},
			req:      pngUpload("document"),
			wantCode: http.StatusBadRequest,
			wantErr:  "No file uploaded",
		},
		{
			name: "text file",
			ocr:  &fakeOCR{resp: acmeResponse()},
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "notes.txt", "text/plain", []byte("hello"))
			},
			wantCode: http.StatusUnsupportedMediaType,
			wantErr:  "Invalid file type. Please upload JPEG, PNG, or PDF.",
		},
		{
			name:     "over size limit",
			ocr:      &fakeOCR{resp: acmeResponse()},
			limits:   ingest.Limits{MaxBytes: 16},
			req:      pngUpload("file"),
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "File too large",
		},
		{
			name:     "ocr without document",
			ocr:      &fakeOCR{resp: &documentai.Response{}},
			req:      pngUpload("file"),
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "no document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v *ingest.Validator
			if tt.limits.MaxBytes > 0 {
				v = ingest.NewValidator(tt.limits, nil)
			}
			h := NewRouter(testDeps(t, tt.ocr, v))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req(t))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
			out := decodeResult(t, rec)
			if out.Success || !strings.Contains(out.Error, tt.wantErr) {
				t.Errorf("result = %+v, want error containing %q", out, tt.wantErr)
			}
		})
	}
}

func TestStatusEndpoints(t *testing.T) {
	h := NewRouter(testDeps(t, &fakeOCR{}, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/process-invoice", nil))
	var alive map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &alive)
	if rec.Code != http.StatusOK || alive["message"] != "Invoice processing API is running" || alive["timestamp"] == "" {
		t.Errorf("GET process-invoice = %d %v", rec.Code, alive)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var cfg struct {
		Message string            `json:"message"`
		Config  map[string]string `json:"config"`
		Name    string            `json:"processorName"`
		URL     string            `json:"endpointUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Config["credentialsPath"] != "Missing" || cfg.Config["location"] != "eu" {
		t.Errorf("config = %+v", cfg.Config)
	}
	if cfg.Name != "projects/demo/locations/eu/processors/abc123" {
		t.Errorf("processorName = %s", cfg.Name)
	}
	if cfg.URL != "https://eu-documentai.googleapis.com/v1/projects/demo/locations/eu/processors/abc123:process" {
		t.Errorf("endpointUrl = %s", cfg.URL)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
}

func TestGetInvoice_Errors(t *testing.T) {
	h := NewRouter(testDeps(t, &fakeOCR{}, nil))
	tests := []struct {
		path string
		want int
	}{
		{"/api/invoices/" + uuid.NewString(), http.StatusNotFound},
		{"/api/invoices/not-a-uuid", http.StatusBadRequest},
		{"/api/invoices?limit=abc", http.StatusBadRequest},
		{"/api/invoices?offset=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestReadEndpoints_NoStorage(t *testing.T) {
	h := NewRouter(Deps{Invoices: invoices.NewService(nil, &fakeOCR{}, nil, nil, nil)})
	for _, p := range []string{"/api/invoices", "/api/invoices/" + uuid.NewString(), "/api/invoices/export.xlsx"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d", p, rec.Code)
		}
	}
}
