package repository

import (
	"fmt"

	"entgo.io/ent/dialect"
)

const (
	invoicesTable  = "invoices"
	lineItemsTable = "line_items"
)

type columnTypes struct {
	uuid, timestamp, float string
}

var dialectTypes = map[string]columnTypes{
	dialect.Postgres: {uuid: "UUID", timestamp: "TIMESTAMPTZ", float: "DOUBLE PRECISION"},
	dialect.SQLite:   {uuid: "TEXT", timestamp: "DATETIME", float: "REAL"},
}

// Money and dates stay text: they are stored as extracted, not as parsed values.
const invoicesDDL = `CREATE TABLE IF NOT EXISTS invoices (
	id               %[1]s PRIMARY KEY,
	supplier         TEXT,
	total            TEXT,
	invoice_date     TEXT,
	invoice_number   TEXT,
	currency         TEXT,
	payment_terms    TEXT,
	invoice_type     TEXT,
	line_items_count INTEGER,
	confidence       %[3]s NOT NULL DEFAULT 0,
	ai_enhanced      BOOLEAN NOT NULL DEFAULT FALSE,
	raw_text         TEXT NOT NULL DEFAULT '',
	source_name      TEXT NOT NULL DEFAULT '',
	content_hash     TEXT NOT NULL DEFAULT '',
	created_at       %[2]s NOT NULL
)`

const lineItemsDDL = `CREATE TABLE IF NOT EXISTS line_items (
	invoice_id        %[1]s NOT NULL REFERENCES invoices (id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	description       TEXT,
	quantity          TEXT,
	unit_price        TEXT,
	amount            TEXT,
	product_code      TEXT,
	raw_text          TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	subcategory       TEXT,
	clean_description TEXT,
	ai_confidence     INTEGER,
	ai_categorized    BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (invoice_id, position)
)`

func schemaFor(d string) []string {
	t, ok := dialectTypes[d]
	if !ok {
		t = dialectTypes[dialect.Postgres]
	}
	return []string{
		fmt.Sprintf(invoicesDDL, t.uuid, t.timestamp, t.float),
		fmt.Sprintf(lineItemsDDL, t.uuid),
		"CREATE INDEX IF NOT EXISTS invoices_content_hash_idx ON invoices (content_hash)",
		"CREATE INDEX IF NOT EXISTS invoices_created_at_idx ON invoices (created_at)",
	}
}
