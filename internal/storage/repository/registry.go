package repository

import (
	"errors"
	"fmt"
)

// Errors returned by the tenant-scoped surface before any SQL is issued.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotFound      = errors.New("not found")
)

// Relation describes a column on a joined table that callers may project
// and sort by under an alias (e.g. a document's matter title).
type Relation struct {
	Table  string // joined table
	FK     string // foreign-key column on the base table
	Column string // column on the joined table
}

// Resource describes one tenant-owned table: the columns callers may touch
// and the related columns reachable through a join. Identifiers cannot be
// bound as SQL parameters, so everything here acts as a whitelist.
type Resource struct {
	Table     string
	IDColumn  string
	Columns   map[string]struct{}
	Relations map[string]Relation // keyed by exposed alias
}

func cols(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// registry lists every table reachable through the tenant-scoped surface.
// The users table is deliberately absent: subscription state is mutated
// only by the webhook RPC, never through this API.
var registry = map[string]Resource{
	"clients": {
		Table:    "clients",
		IDColumn: "id",
		Columns:  cols("id", "user_uid", "name", "email", "phone", "address", "notes", "created_at", "updated_at"),
	},
	"matters": {
		Table:    "matters",
		IDColumn: "id",
		Columns:  cols("id", "user_uid", "title", "client_id", "status", "court", "docket_number", "opened_at", "created_at", "updated_at"),
		Relations: map[string]Relation{
			"client_name": {Table: "clients", FK: "client_id", Column: "name"},
		},
	},
	"documents": {
		Table:    "documents",
		IDColumn: "id",
		Columns:  cols("id", "user_uid", "matter_id", "name", "storage_key", "content_type", "size_bytes", "created_at", "updated_at"),
		Relations: map[string]Relation{
			"matter_title": {Table: "matters", FK: "matter_id", Column: "title"},
		},
	},
	"billing_entries": {
		Table:    "billing_entries",
		IDColumn: "id",
		Columns:  cols("id", "user_uid", "matter_id", "description", "hours", "rate", "entry_date", "created_at", "updated_at"),
		Relations: map[string]Relation{
			"matter_title": {Table: "matters", FK: "matter_id", Column: "title"},
		},
	},
	"deadlines": {
		Table:    "deadlines",
		IDColumn: "id",
		Columns:  cols("id", "user_uid", "matter_id", "title", "due_date", "notes", "done", "created_at", "updated_at"),
		Relations: map[string]Relation{
			"matter_title": {Table: "matters", FK: "matter_id", Column: "title"},
		},
	},
	"user_preferences": {
		Table:    "user_preferences",
		IDColumn: "id",
		Columns:  cols("id", "user_uid", "locale", "timezone", "notifications_enabled", "created_at", "updated_at"),
	},
}

// LookupResource resolves a table name against the registry.
func LookupResource(table string) (Resource, error) {
	res, ok := registry[table]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return res, nil
}

// checkColumn validates a column name against the resource whitelist.
func (r Resource) checkColumn(name string) error {
	if _, ok := r.Columns[name]; !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, r.Table, name)
	}
	return nil
}
