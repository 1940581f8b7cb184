package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/repository"
)

const (
	SheetInvoices   = "Invoices"
	SheetLineItems  = "Line Items"
	SheetCategories = "Categories"
)

// Service is a tiny façade over the invoice repository that produces XLSX bytes.
type Service struct {
	repo   repository.InvoiceRepository
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportInvoicesXLSX renders the stored invoices selected by f.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()
	invs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	buf, err := WriteXLSX(invs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"invoices", len(invs),
		"bytes", len(buf),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// WriteXLSX builds a workbook with one sheet of invoice headers, one of line
// items and one category summary across all items.
func WriteXLSX(invs []*entity.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes the invoices sheet
	if err := f.SetSheetName(f.GetSheetName(0), SheetInvoices); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetLineItems, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writeInvoices(f, invs)
	all := writeLineItems(f, invs)
	writeCategories(f, entity.Summarize(all))

	idx, _ := f.GetSheetIndex(SheetInvoices)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (w *sheetWriter) header(cols ...string) {
	w.row = 1
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	w.values(vals...)
	style, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		_ = w.f.SetCellStyle(w.sheet, "A1", last, style)
	}
	_ = w.f.SetPanes(w.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (w *sheetWriter) values(vals ...any) {
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
	w.row++
}

func (w *sheetWriter) widths(widths ...float64) {
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = w.f.SetColWidth(w.sheet, col, col, wd)
	}
}

func writeInvoices(f *excelize.File, invs []*entity.Invoice) {
	w := &sheetWriter{f: f, sheet: SheetInvoices}
	w.header("ID", "Source", "Supplier", "Invoice #", "Date", "Total", "Currency",
		"Line Items", "Confidence", "AI Enhanced", "Created")
	for _, inv := range invs {
		w.values(
			idString(inv),
			inv.SourceName,
			entity.Deref(inv.Supplier),
			entity.Deref(inv.InvoiceNumber),
			entity.Deref(inv.Date),
			money(inv.Total),
			entity.Deref(inv.Currency),
			len(inv.LineItems),
			inv.Confidence,
			inv.AIEnhanced,
			createdString(inv.CreatedAt),
		)
	}
	w.widths(38, 28, 32, 16, 12, 12, 10, 11, 11, 12, 22)
}

func writeLineItems(f *excelize.File, invs []*entity.Invoice) []entity.LineItem {
	w := &sheetWriter{f: f, sheet: SheetLineItems}
	w.header("Invoice ID", "Source", "#", "Description", "Clean Description", "Quantity",
		"Unit Price", "Amount", "Category", "Subcategory", "AI Confidence", "AI Categorized")

	var all []entity.LineItem
	for _, inv := range invs {
		for i, li := range inv.LineItems {
			var conf any = ""
			if li.AIConfidence != nil {
				conf = *li.AIConfidence
			}
			w.values(
				idString(inv),
				inv.SourceName,
				i+1,
				truncate(entity.Deref(li.Description), 140),
				entity.Deref(li.CleanDescription),
				entity.Deref(li.Quantity),
				money(li.UnitPrice),
				money(li.Amount),
				li.Category,
				entity.Deref(li.Subcategory),
				conf,
				li.AICategorized,
			)
			all = append(all, li)
		}
	}
	w.widths(38, 28, 5, 40, 32, 10, 12, 12, 16, 16, 13, 14)
	return all
}

func writeCategories(f *excelize.File, s entity.Summary) {
	w := &sheetWriter{f: f, sheet: SheetCategories}
	w.header("Category", "Items", "Amount")
	for _, c := range s.Categories {
		w.values(c.Category, c.Items, moneyString(c.Amount))
	}
	w.row++
	w.values("AI categorized", s.AICategorized)
	w.values("Average AI confidence", fmt.Sprintf("%.1f", s.AverageAIConfidence))
	w.widths(24, 10, 14)
}

// money writes parseable amounts as numbers and anything else as the original text.
func money(s *string) any {
	if s == nil {
		return ""
	}
	return moneyString(*s)
}

func moneyString(s string) any {
	if d, ok := entity.ParseMoney(s); ok {
		f, _ := d.Round(2).Float64()
		return f
	}
	return s
}

func idString(inv *entity.Invoice) string {
	if inv.ID == uuid.Nil {
		return ""
	}
	return inv.ID.String()
}

func createdString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
