// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single retail sale from the source table.
type Transaction struct {
	DateOfSale      time.Time // Zero when the source cell was empty or NA
	City            NullString
	ProductCategory NullString
	SalesAmount     decimal.NullDecimal

	// Derived at load time from DateOfSale
	Month NullInt
	Year  NullInt
}

// NewTransaction builds a transaction and derives its month and year columns.
// A nil date yields null month and year.
func NewTransaction(date *time.Time, city, category NullString, amount decimal.NullDecimal) Transaction {
	txn := Transaction{
		City:            city,
		ProductCategory: category,
		SalesAmount:     amount,
	}
	if date != nil {
		txn.DateOfSale = *date
		txn.Month = NewNullInt(int(date.Month()))
		txn.Year = NewNullInt(date.Year())
	}
	return txn
}

// HasDate reports whether the sale carried a date.
func (t Transaction) HasDate() bool {
	return t.Year.Valid
}

// Amount returns the sales amount, treating a missing value as zero.
func (t Transaction) Amount() decimal.Decimal {
	if !t.SalesAmount.Valid {
		return decimal.Zero
	}
	return t.SalesAmount.Decimal
}

// Equal compares two transactions by content.
func (t Transaction) Equal(other Transaction) bool {
	if !t.DateOfSale.Equal(other.DateOfSale) {
		return false
	}
	if t.City != other.City || t.ProductCategory != other.ProductCategory {
		return false
	}
	if t.Month != other.Month || t.Year != other.Year {
		return false
	}
	if t.SalesAmount.Valid != other.SalesAmount.Valid {
		return false
	}
	return !t.SalesAmount.Valid || t.SalesAmount.Decimal.Equal(other.SalesAmount.Decimal)
}
