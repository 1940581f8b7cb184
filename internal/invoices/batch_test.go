package invoices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/invoice-tracker/constants"
	"github.com/joseph-ayodele/invoice-tracker/internal/async"
	"github.com/joseph-ayodele/invoice-tracker/internal/ingest"
)

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	img := pngBytes(t)
	files := map[string][]byte{
		"a.png":     img,
		"copy.png":  img,
		"notes.pdf": []byte("not a pdf"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ocr := &fakeOCR{resp: ocrResponse()}
	svc := NewService(nil, ocr, nil, openRepo(t), nil)
	svc.Dedupe = true

	// one worker keeps the duplicate check ordered
	b := NewBatch(svc, 0, nil, async.WithWorkers(1))
	paths, _, err := ingest.ScanDirectory(context.Background(), dir, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if err := b.Submit(context.Background(), p); err != nil {
			t.Fatalf("Submit(%s): %v", p, err)
		}
	}
	rep := b.Wait(context.Background())

	if len(rep.Results) != 3 {
		t.Fatalf("results = %+v", rep.Results)
	}
	if rep.Stats.Succeeded != 1 || rep.Stats.Deduplicated != 1 || rep.Stats.Failed != 1 {
		t.Errorf("stats = %+v", rep.Stats)
	}
	if len(rep.Invoices) != 1 || ocr.calls != 1 {
		t.Errorf("invoices = %d, ocr calls = %d", len(rep.Invoices), ocr.calls)
	}
	for _, r := range rep.Results {
		if filepath.Base(r.SourcePath) == "notes.pdf" {
			if r.Err == "" || r.Status != constants.JobStatusFailed {
				t.Errorf("broken pdf accepted: %+v", r)
			}
		} else if r.Status != constants.JobStatusSucceeded || r.HashHex == "" {
			t.Errorf("result = %+v", r)
		}
	}

	if err := b.Submit(context.Background(), paths[0]); !errors.Is(err, async.ErrQueueClosed) {
		t.Errorf("Submit after Wait = %v", err)
	}
}

func TestBatch_DedupesWithoutRepo(t *testing.T) {
	dir := t.TempDir()
	img := pngBytes(t)
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, img, 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	ocr := &fakeOCR{resp: ocrResponse()}
	svc := NewService(nil, ocr, nil, nil, nil)
	b := NewBatch(svc, 0, nil, async.WithWorkers(4))
	for _, p := range paths {
		if err := b.Submit(context.Background(), p); err != nil {
			t.Fatalf("Submit(%s): %v", p, err)
		}
	}
	rep := b.Wait(context.Background())

	if ocr.calls != 1 {
		t.Errorf("ocr calls = %d, want 1", ocr.calls)
	}
	if rep.Stats.Succeeded != 1 || rep.Stats.Deduplicated != 3 || rep.Stats.Failed != 0 {
		t.Errorf("stats = %+v", rep.Stats)
	}
	if len(rep.Invoices) != 1 {
		t.Errorf("invoices = %d", len(rep.Invoices))
	}
	want := ingest.HashHex(img)
	for _, r := range rep.Results {
		if r.HashHex != want || r.Status != constants.JobStatusSucceeded {
			t.Errorf("result = %+v", r)
		}
	}
	for _, p := range paths {
		if st, ok := b.Status(p); !ok || st != constants.JobStatusSucceeded {
			t.Errorf("Status(%s) = %s, %v", p, st, ok)
		}
	}
}

func TestBatch_ResubmittedFileIsNotReprocessed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(p, pngBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}

	ocr := &fakeOCR{resp: ocrResponse()}
	b := NewBatch(NewService(nil, ocr, nil, nil, nil), 0, nil, async.WithWorkers(1))
	if _, ok := b.Status(p); ok {
		t.Fatal("status before submit")
	}
	// the same path seen again, as a watcher does on later writes
	for i := 0; i < 3; i++ {
		if err := b.Submit(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
	rep := b.Wait(context.Background())

	if ocr.calls != 1 {
		t.Errorf("ocr calls = %d, want 1", ocr.calls)
	}
	if rep.Stats.Succeeded != 1 || len(rep.Invoices) != 1 {
		t.Errorf("stats = %+v", rep.Stats)
	}
	for _, r := range rep.Results {
		if r.Deduplicated && r.InvoiceID != rep.Invoices[0].ID.String() {
			t.Errorf("dedup result = %+v, want invoice %s", r, rep.Invoices[0].ID)
		}
	}
}
