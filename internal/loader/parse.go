package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Required column names.
const (
	ColumnDateOfSale      = "date_of_sale"
	ColumnCity            = "city"
	ColumnProductCategory = "product_category"
	ColumnSalesAmount     = "sales_amount"
)

// RequiredColumns lists the columns every source must carry, in canonical order.
var RequiredColumns = []string{ColumnDateOfSale, ColumnCity, ColumnProductCategory, ColumnSalesAmount}

// naTokens are cell values read as missing, matching what spreadsheet and
// dataframe tools write for empty cells.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsNA reports whether a raw cell is a missing-value token.
func IsNA(cell string) bool {
	_, ok := naTokens[strings.TrimSpace(cell)]
	return ok
}

// Parse reads a sales CSV into a table. source is recorded on the table and in errors.
func Parse(r io.Reader, source string) (*model.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &common.SchemaError{Source: source}
	}
	if err != nil {
		return nil, csvError(err, source)
	}

	idx, err := indexColumns(header, source)
	if err != nil {
		return nil, err
	}

	var rows []model.Transaction
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err, source)
		}
		if isBlankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) > len(header) {
			return nil, &common.ParseError{
				Row: line,
				Err: fmt.Errorf("expected %d fields, saw %d", len(header), len(record)),
			}
		}

		txn, err := parseRecord(record, idx, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, txn)
	}

	return model.NewTable(source, rows), nil
}

type columnIndex struct {
	date, city, category, amount int
}

func indexColumns(header []string, source string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, &common.SchemaError{Source: source, Missing: missing}
	}

	return columnIndex{
		date:     positions[ColumnDateOfSale],
		city:     positions[ColumnCity],
		category: positions[ColumnProductCategory],
		amount:   positions[ColumnSalesAmount],
	}, nil
}

func parseRecord(record []string, idx columnIndex, line int) (model.Transaction, error) {
	date, err := parseDate(cell(record, idx.date))
	if err != nil {
		return model.Transaction{}, &common.ParseError{
			Row:    line,
			Column: ColumnDateOfSale,
			Value:  cell(record, idx.date),
			Err:    err,
		}
	}

	amount, err := parseAmount(cell(record, idx.amount))
	if err != nil {
		return model.Transaction{}, &common.ParseError{
			Row:    line,
			Column: ColumnSalesAmount,
			Value:  cell(record, idx.amount),
			Err:    err,
		}
	}

	return model.NewTransaction(
		date,
		parseString(cell(record, idx.city)),
		parseString(cell(record, idx.category)),
		amount,
	), nil
}

// cell returns the field at i; short records read as missing trailing cells.
func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}

func parseString(raw string) model.NullString {
	if IsNA(raw) {
		return model.NullString{}
	}
	return model.NewNullString(raw)
}

// yearFirstLayouts are unambiguous layouts cast does not recognize.
var yearFirstLayouts = []string{"2006/01/02", "2006/1/2", "2006-1-2"}

func parseDate(raw string) (*time.Time, error) {
	if IsNA(raw) {
		return nil, nil
	}
	value := strings.TrimSpace(raw)
	t, err := cast.ToTimeE(value)
	if err == nil {
		return &t, nil
	}
	for _, layout := range yearFirstLayouts {
		if parsed, layoutErr := time.Parse(layout, value); layoutErr == nil {
			return &parsed, nil
		}
	}
	return nil, err
}

func parseAmount(raw string) (decimal.NullDecimal, error) {
	if IsNA(raw) {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("not a number: %w", err)
	}
	return decimal.NewNullDecimal(d), nil
}

func isBlankRecord(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// csvError separates malformed records from failures reading the underlying stream.
func csvError(err error, source string) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &common.ParseError{Row: perr.Line, Err: perr.Err}
	}
	return &common.LoadError{Source: source, Err: err}
}
