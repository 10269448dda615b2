package loader

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidDocument(t *testing.T) {
	csv := "\ufeff date_of_sale , city,product_category,sales_amount,store_id\n" +
		"2023-01-05,Tokyo,Electronics,120.50,7\n" +
		"2022-12-31T09:30:00Z,Osaka,Books,-3.25,8\n"

	table, err := Parse(strings.NewReader(csv), "mem://sales.csv")
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "mem://sales.csv", table.Source())

	first := table.Row(0)
	assert.Equal(t, model.NewNullString("Tokyo"), first.City)
	assert.Equal(t, model.NewNullString("Electronics"), first.ProductCategory)
	assert.Equal(t, "120.5", first.Amount().String())
	assert.Equal(t, model.NewNullInt(1), first.Month)
	assert.Equal(t, model.NewNullInt(2023), first.Year)
	assert.True(t, first.DateOfSale.Equal(time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)))

	second := table.Row(1)
	assert.Equal(t, model.NewNullInt(12), second.Month)
	assert.Equal(t, model.NewNullInt(2022), second.Year)
	assert.Equal(t, "-3.25", second.Amount().String())
}

func TestParse_YearFirstDates(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2023/01/15", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2023/2/3", time.Date(2023, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"2023-3-4", time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC)},
		{" 2022/12/31 ", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			csv := "date_of_sale,city,product_category,sales_amount\n" +
				"2023-01-05,Tokyo,Books,1\n" +
				"\"" + tt.raw + "\",Tokyo,Books,1\n"

			table, err := Parse(strings.NewReader(csv), "mem")
			require.NoError(t, err)
			require.Equal(t, 2, table.Len())

			row := table.Row(1)
			assert.True(t, row.DateOfSale.Equal(tt.want))
			assert.Equal(t, model.NewNullInt(int(tt.want.Month())), row.Month)
			assert.Equal(t, model.NewNullInt(tt.want.Year()), row.Year)
		})
	}
}

func TestParse_MissingValues(t *testing.T) {
	csv := "date_of_sale,city,product_category,sales_amount\n" +
		"NA,Tokyo,Books,10\n" +
		"2023-02-01,,N/A,null\n" +
		"2023-03-01,Kyoto\n"

	table, err := Parse(strings.NewReader(csv), "mem")
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	noDate := table.Row(0)
	assert.False(t, noDate.HasDate())
	assert.False(t, noDate.Month.Valid)
	assert.False(t, noDate.Year.Valid)
	assert.True(t, noDate.DateOfSale.IsZero())

	nulls := table.Row(1)
	assert.False(t, nulls.City.Valid)
	assert.False(t, nulls.ProductCategory.Valid)
	assert.False(t, nulls.SalesAmount.Valid)
	assert.True(t, nulls.Amount().IsZero())

	short := table.Row(2)
	assert.Equal(t, model.NewNullString("Kyoto"), short.City)
	assert.False(t, short.ProductCategory.Valid)
	assert.False(t, short.SalesAmount.Valid)
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := Parse(strings.NewReader("date_of_sale,city,product_category,sales_amount\n"), "mem")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		sentinel error
		check    func(t *testing.T, err error)
		name     string
		input    string
	}{
		{
			name:     "empty document",
			input:    "",
			sentinel: common.ErrSchema,
		},
		{
			name:     "missing columns",
			input:    "date_of_sale,city\n2023-01-01,Tokyo\n",
			sentinel: common.ErrSchema,
			check: func(t *testing.T, err error) {
				t.Helper()
				var schemaErr *common.SchemaError
				require.True(t, errors.As(err, &schemaErr))
				assert.Equal(t, []string{"product_category", "sales_amount"}, schemaErr.Missing)
			},
		},
		{
			name: "unparseable date",
			input: "date_of_sale,city,product_category,sales_amount\n" +
				"2023-01-01,Tokyo,Books,1\n" +
				"not a date,Tokyo,Books,1\n",
			sentinel: common.ErrParse,
			check: func(t *testing.T, err error) {
				t.Helper()
				var parseErr *common.ParseError
				require.True(t, errors.As(err, &parseErr))
				assert.Equal(t, 3, parseErr.Row)
				assert.Equal(t, "date_of_sale", parseErr.Column)
				assert.Equal(t, "not a date", parseErr.Value)
			},
		},
		{
			name: "non-numeric amount",
			input: "date_of_sale,city,product_category,sales_amount\n" +
				"2023-01-01,Tokyo,Books,lots\n",
			sentinel: common.ErrParse,
			check: func(t *testing.T, err error) {
				t.Helper()
				var parseErr *common.ParseError
				require.True(t, errors.As(err, &parseErr))
				assert.Equal(t, 2, parseErr.Row)
				assert.Equal(t, "sales_amount", parseErr.Column)
			},
		},
		{
			name: "too many fields",
			input: "date_of_sale,city,product_category,sales_amount\n" +
				"2023-01-01,Tokyo,Books,1,extra\n",
			sentinel: common.ErrParse,
		},
		{
			name: "bare quote",
			input: "date_of_sale,city,product_category,sales_amount\n" +
				"2023-01-01,To\"kyo,Books,1\n",
			sentinel: common.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(strings.NewReader(tt.input), "mem")
			require.Error(t, err)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, tt.sentinel)
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestIsNA(t *testing.T) {
	for _, token := range []string{"", " ", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "#N/A", "<NA>"} {
		assert.True(t, IsNA(token), "expected %q to be missing", token)
	}
	for _, value := range []string{"0", "Tokyo", "none", "-"} {
		assert.False(t, IsNA(value), "expected %q to be a value", value)
	}
}
