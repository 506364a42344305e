// Package facts reads the trigger-fact tables (documents, claims,
// case_events, invoices, flights) that drive task auto-completion. The
// predicate language is a small DSL of existence/state checks, not
// arbitrary SQL.
package facts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Source names a trigger-fact table.
type Source string

const (
	SourceDocuments  Source = "documents"
	SourceClaims     Source = "claims"
	SourceCaseEvents Source = "case_events"
	SourceInvoices   Source = "invoices"
	SourceFlights    Source = "flights"
)

func (s Source) Valid() bool {
	switch s {
	case SourceDocuments, SourceClaims, SourceCaseEvents, SourceInvoices, SourceFlights:
		return true
	}
	return false
}

// Check is one existence/state condition over a fact source, scoped to a
// dossier. Type discriminates rows within the source (document type, event
// type); Status restricts the row state; NonNull requires a column to be
// set (e.g. a flight's waybill).
type Check struct {
	Source  Source   `json:"source"`
	Type    string   `json:"type,omitempty"`
	Status  []string `json:"status,omitempty"`
	NonNull string   `json:"non_null,omitempty"`
}

// Predicate is a conjunction of checks. An empty predicate never fires.
type Predicate struct {
	All []Check `json:"all"`
}

func (p Predicate) Empty() bool { return len(p.All) == 0 }

// Parse decodes a predicate from its stored JSON form.
func Parse(raw string) (Predicate, error) {
	var p Predicate
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Predicate{}, fmt.Errorf("parse predicate: %w", err)
	}
	for _, c := range p.All {
		if !c.Source.Valid() {
			return Predicate{}, fmt.Errorf("parse predicate: unknown source %q", c.Source)
		}
	}
	return p, nil
}

// Encode serializes the predicate for storage on a task row.
func (p Predicate) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode predicate: %w", err)
	}
	return string(b), nil
}

// Store answers whether a single check holds for a dossier.
type Store interface {
	Holds(ctx context.Context, dossierID string, c Check) (bool, error)
}

// Eval evaluates the conjunction. A check with no satisfying fact makes the
// whole predicate false.
func Eval(ctx context.Context, st Store, dossierID string, p Predicate) (bool, error) {
	if p.Empty() {
		return false, nil
	}
	for _, c := range p.All {
		ok, err := st.Holds(ctx, dossierID, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// SQLStore reads trigger facts from the relational store. Read-only.
type SQLStore struct {
	DB *sql.DB
}

// typeColumn is the per-source discriminator column.
var typeColumn = map[Source]string{
	SourceDocuments:  "doc_type",
	SourceCaseEvents: "event_type",
	SourceInvoices:   "invoice_type",
}

// nonNullColumns whitelists columns usable in NonNull checks; anything else
// is rejected rather than interpolated into SQL.
var nonNullColumns = map[Source]map[string]bool{
	SourceFlights: {"waybill": true, "arrival_at": true},
}

func (s SQLStore) Holds(ctx context.Context, dossierID string, c Check) (bool, error) {
	if !c.Source.Valid() {
		return false, fmt.Errorf("fact source %q unknown", c.Source)
	}
	clauses := []string{"dossier_id=?"}
	args := []any{dossierID}
	if c.Type != "" {
		col, ok := typeColumn[c.Source]
		if !ok {
			return false, fmt.Errorf("fact source %s has no type discriminator", c.Source)
		}
		clauses = append(clauses, col+"=?")
		args = append(args, c.Type)
	}
	if len(c.Status) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(c.Status)), ",")
		clauses = append(clauses, "status IN ("+placeholders+")")
		for _, st := range c.Status {
			args = append(args, st)
		}
	}
	if c.NonNull != "" {
		allowed := nonNullColumns[c.Source]
		if !allowed[c.NonNull] {
			return false, fmt.Errorf("fact source %s column %q not allowed in non_null check", c.Source, c.NonNull)
		}
		clauses = append(clauses, c.NonNull+" IS NOT NULL")
	}
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s LIMIT 1`, c.Source, strings.Join(clauses, " AND "))
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", c.Source, err)
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
