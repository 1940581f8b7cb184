package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// ListFilter pages through invoices newest first.
type ListFilter struct {
	Limit  int
	Offset int
}

type InvoiceRepository interface {
	// Create stores the invoice and its line items in one transaction,
	// assigning ID and CreatedAt when unset.
	Create(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetByHash(ctx context.Context, hash string) (*entity.Invoice, error)
	List(ctx context.Context, f ListFilter) ([]*entity.Invoice, error)
}

type invoiceRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewInvoiceRepository(db *DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{drv: db.Driver, logger: logger}
}

var invoiceColumns = []string{
	"id", "supplier", "total", "invoice_date", "invoice_number",
	"currency", "payment_terms", "invoice_type", "line_items_count",
	"confidence", "ai_enhanced", "raw_text", "source_name", "content_hash", "created_at",
}

var lineItemColumns = []string{
	"invoice_id", "position", "description", "quantity", "unit_price", "amount",
	"product_code", "raw_text", "category", "subcategory", "clean_description",
	"ai_confidence", "ai_categorized",
}

func (r *invoiceRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *invoiceRepository) Create(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	out := inv.Clone()
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}

	q, args := r.builder().Insert(invoicesTable).
		Columns(invoiceColumns...).
		Values(
			out.ID.String(), nullable(out.Supplier), nullable(out.Total), nullable(out.Date), nullable(out.InvoiceNumber),
			nullable(out.Currency), nullable(out.PaymentTerms), nullable(out.InvoiceType), nullableInt(out.LineItemsCount),
			out.Confidence, out.AIEnhanced, out.RawText, out.SourceName, out.ContentHash, out.CreatedAt,
		).Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		_ = tx.Rollback()
		r.logger.Error("failed to insert invoice", "invoice_id", out.ID, "error", err)
		return nil, fmt.Errorf("%w: insert invoice: %v", common.ErrDatabase, err)
	}

	if len(out.LineItems) > 0 {
		ins := r.builder().Insert(lineItemsTable).Columns(lineItemColumns...)
		for i, li := range out.LineItems {
			ins.Values(
				out.ID.String(), i, nullable(li.Description), nullable(li.Quantity), nullable(li.UnitPrice), nullable(li.Amount),
				nullable(li.ProductCode), li.RawText, li.Category, nullable(li.Subcategory), nullable(li.CleanDescription),
				nullableInt(li.AIConfidence), li.AICategorized,
			)
		}
		q, args := ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			_ = tx.Rollback()
			r.logger.Error("failed to insert line items", "invoice_id", out.ID, "count", len(out.LineItems), "error", err)
			return nil, fmt.Errorf("%w: insert line items: %v", common.ErrDatabase, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("invoice stored", "invoice_id", out.ID, "line_items", len(out.LineItems))
	return out, nil
}

func (r *invoiceRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.one(ctx, entsql.EQ("id", id.String()), "id", id.String())
}

func (r *invoiceRepository) GetByHash(ctx context.Context, hash string) (*entity.Invoice, error) {
	return r.one(ctx, entsql.EQ("content_hash", hash), "content_hash", hash)
}

func (r *invoiceRepository) one(ctx context.Context, p *entsql.Predicate, key, val string) (*entity.Invoice, error) {
	sel := r.builder().Select(invoiceColumns...).From(entsql.Table(invoicesTable)).
		Where(p).OrderBy(entsql.Asc("created_at")).Limit(1)
	invs, err := r.queryInvoices(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(invs) == 0 {
		return nil, fmt.Errorf("invoice %s=%s: %w", key, val, common.ErrNotFound)
	}
	if err := r.attachLineItems(ctx, invs); err != nil {
		return nil, err
	}
	return invs[0], nil
}

func (r *invoiceRepository) List(ctx context.Context, f ListFilter) ([]*entity.Invoice, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	sel := r.builder().Select(invoiceColumns...).From(entsql.Table(invoicesTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id")).
		Limit(f.Limit)
	if f.Offset > 0 {
		sel.Offset(f.Offset)
	}
	invs, err := r.queryInvoices(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	if err := r.attachLineItems(ctx, invs); err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *invoiceRepository) queryInvoices(ctx context.Context, sel *entsql.Selector) ([]*entity.Invoice, error) {
	q, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("%w: query invoices: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		var (
			inv                                                    entity.Invoice
			supplier, total, date, number, currency, terms, invTyp sql.NullString
			count                                                  sql.NullInt64
			created                                                timeValue
		)
		if err := rows.Scan(
			&inv.ID, &supplier, &total, &date, &number,
			&currency, &terms, &invTyp, &count,
			&inv.Confidence, &inv.AIEnhanced, &inv.RawText, &inv.SourceName, &inv.ContentHash, &created,
		); err != nil {
			return nil, fmt.Errorf("%w: scan invoice: %v", common.ErrDatabase, err)
		}
		inv.Supplier, inv.Total, inv.Date, inv.InvoiceNumber = strPtr(supplier), strPtr(total), strPtr(date), strPtr(number)
		inv.Currency, inv.PaymentTerms, inv.InvoiceType = strPtr(currency), strPtr(terms), strPtr(invTyp)
		inv.LineItemsCount = intPtr(count)
		inv.CreatedAt = created.Time
		inv.LineItems = []entity.LineItem{}
		out = append(out, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate invoices: %v", common.ErrDatabase, err)
	}
	return out, nil
}

// attachLineItems loads items for all invoices in one query, ordered by position.
func (r *invoiceRepository) attachLineItems(ctx context.Context, invs []*entity.Invoice) error {
	if len(invs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entity.Invoice, len(invs))
	ids := make([]any, 0, len(invs))
	for _, inv := range invs {
		byID[inv.ID] = inv
		ids = append(ids, inv.ID.String())
	}

	q, args := r.builder().Select(lineItemColumns...).From(entsql.Table(lineItemsTable)).
		Where(entsql.In("invoice_id", ids...)).
		OrderBy(entsql.Asc("invoice_id"), entsql.Asc("position")).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		return fmt.Errorf("%w: query line items: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			invoiceID                                     uuid.UUID
			position                                      int
			li                                            entity.LineItem
			desc, qty, unit, amount, code, sub, cleanDesc sql.NullString
			aiConf                                        sql.NullInt64
		)
		if err := rows.Scan(
			&invoiceID, &position, &desc, &qty, &unit, &amount,
			&code, &li.RawText, &li.Category, &sub, &cleanDesc,
			&aiConf, &li.AICategorized,
		); err != nil {
			return fmt.Errorf("%w: scan line item: %v", common.ErrDatabase, err)
		}
		li.Description, li.Quantity, li.UnitPrice, li.Amount = strPtr(desc), strPtr(qty), strPtr(unit), strPtr(amount)
		li.ProductCode, li.Subcategory, li.CleanDescription = strPtr(code), strPtr(sub), strPtr(cleanDesc)
		li.AIConfidence = intPtr(aiConf)
		if inv, ok := byID[invoiceID]; ok {
			inv.LineItems = append(inv.LineItems, li)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate line items: %v", common.ErrDatabase, err)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return entity.Str(ns.String)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return entity.Int(int(n.Int64))
}

// timeValue scans timestamps from drivers that return time.Time as well as
// those that hand back text.
type timeValue struct{ Time time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
