package model

import "time"

// Table is an immutable, ordered collection of transactions loaded from one source.
// Nothing hands out a reference to the underlying rows.
type Table struct {
	loadedAt time.Time
	source   string
	rows     []Transaction
}

// NewTable copies rows into a new table.
func NewTable(source string, rows []Transaction) *Table {
	owned := make([]Transaction, len(rows))
	copy(owned, rows)
	return &Table{
		source:   source,
		rows:     owned,
		loadedAt: time.Now(),
	}
}

// Source returns the URL or path the table was loaded from.
func (t *Table) Source() string {
	return t.source
}

// LoadedAt returns when the table was built.
func (t *Table) LoadedAt() time.Time {
	return t.loadedAt
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the i-th row by value.
func (t *Table) Row(i int) Transaction {
	return t.rows[i]
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Transaction {
	if t == nil {
		return nil
	}
	out := make([]Transaction, len(t.rows))
	copy(out, t.rows)
	return out
}

// Each calls fn for every row in order.
func (t *Table) Each(fn func(Transaction)) {
	if t == nil {
		return
	}
	for _, row := range t.rows {
		fn(row)
	}
}

// Equal reports whether both tables hold the same rows in the same order.
// Source and load time are not compared.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t.Len() == 0 {
		return true
	}
	for i := range t.rows {
		if !t.rows[i].Equal(other.rows[i]) {
			return false
		}
	}
	return true
}
