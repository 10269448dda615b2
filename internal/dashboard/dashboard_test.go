package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	err             error
	table           *model.Table
	loadCalls       int
	invalidateCalls int
	mu              sync.Mutex
}

func (f *fakeLoader) Load(_ context.Context, _ string) (*model.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func (f *fakeLoader) Invalidate(_ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidateCalls++
}

func (f *fakeLoader) InvalidateAll() {
	f.Invalidate("")
}

func row(date, city, category, amount string) model.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return model.NewTransaction(&d,
		model.NewNullString(city),
		model.NewNullString(category),
		decimal.NewNullDecimal(decimal.RequireFromString(amount)))
}

func sampleTable() *model.Table {
	return model.NewTable("mem://sales", []model.Transaction{
		row("2022-01-10", "Tokyo", "Books", "100"),
		row("2023-01-10", "Tokyo", "Books", "120"),
		row("2023-02-10", "Tokyo", "Toys", "30"),
		row("2022-03-10", "Osaka", "Toys", "200"),
		row("2023-03-10", "Osaka", "Toys", "180"),
	})
}

func testConfig() Config {
	return Config{Year: 2023, Cities: []string{"Tokyo", "Yokohama", "Osaka"}, DataURL: "mem://sales"}
}

func TestVisualizationYear(t *testing.T) {
	assert.Equal(t, 2023, VisualizationYear(2023, false))
	assert.Equal(t, 2022, VisualizationYear(2023, true))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name:   "default config",
			config: DefaultConfig(),
		},
		{
			name:   "single city",
			config: Config{Year: 2023, Cities: []string{"Kyoto"}, DataURL: "sales.csv"},
		},
		{
			name:    "no cities",
			config:  Config{Year: 2023, DataURL: "sales.csv"},
			wantErr: true,
			errMsg:  "at least one city is required",
		},
		{
			name:    "zero year",
			config:  Config{Cities: []string{"Tokyo"}, DataURL: "sales.csv"},
			wantErr: true,
			errMsg:  "year must be positive",
		},
		{
			name:    "duplicate city",
			config:  Config{Year: 2023, Cities: []string{"Tokyo", "Tokyo"}, DataURL: "sales.csv"},
			wantErr: true,
			errMsg:  "listed twice",
		},
		{
			name:    "missing url",
			config:  Config{Year: 2023, Cities: []string{"Tokyo"}},
			wantErr: true,
			errMsg:  "data URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Resolve(t *testing.T) {
	cfg := testConfig()

	sel, err := cfg.Resolve(Selection{})
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", sel.City)

	sel, err = cfg.Resolve(Selection{City: "Osaka", ShowPreviousYear: true})
	require.NoError(t, err)
	assert.Equal(t, Selection{City: "Osaka", ShowPreviousYear: true}, sel)

	_, err = cfg.Resolve(Selection{City: "Kyoto"})
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestService_Render(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	svc, err := NewService(loader, testConfig(), nil)
	require.NoError(t, err)

	snapshot, err := svc.Render(context.Background(), Selection{City: "Tokyo"})
	require.NoError(t, err)

	assert.Equal(t, "mem://sales", snapshot.Source)
	assert.Equal(t, 2023, snapshot.Year)
	assert.Equal(t, 2023, snapshot.VisualizationYear)
	assert.Equal(t, "Tokyo", snapshot.SelectedCity)

	require.Len(t, snapshot.Metrics, 3)
	tokyo := snapshot.Metrics[0]
	assert.Equal(t, "Tokyo", tokyo.City)
	assert.True(t, tokyo.Found)
	assert.True(t, decimal.NewFromInt(150).Equal(tokyo.Total))
	assert.InDelta(t, 50.0, tokyo.Change, 1e-9)

	yokohama := snapshot.Metrics[1]
	assert.False(t, yokohama.Found)
	assert.True(t, math.IsNaN(yokohama.Change))

	osaka := snapshot.Metrics[2]
	assert.InDelta(t, -10.0, osaka.Change, 1e-9)

	require.Len(t, snapshot.Monthly.Buckets, 2)
	require.Len(t, snapshot.Categories.Buckets, 2)
	assert.True(t, decimal.NewFromInt(150).Equal(snapshot.Monthly.Total()))
}

func TestService_RenderPreviousYear(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	svc, err := NewService(loader, testConfig(), nil)
	require.NoError(t, err)

	snapshot, err := svc.Render(context.Background(), Selection{City: "Osaka", ShowPreviousYear: true})
	require.NoError(t, err)

	assert.Equal(t, 2022, snapshot.VisualizationYear)
	assert.Equal(t, 2023, snapshot.Year, "metrics stay on the configured year")
	total, ok := snapshot.Categories.Lookup("Toys")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(200).Equal(total))
}

func TestService_RenderEmptySelection(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	svc, err := NewService(loader, testConfig(), nil)
	require.NoError(t, err)

	snapshot, err := svc.Render(context.Background(), Selection{City: "Yokohama"})
	require.NoError(t, err)
	assert.True(t, snapshot.Monthly.IsEmpty())
	assert.True(t, snapshot.Categories.IsEmpty())
}

func TestService_RenderErrors(t *testing.T) {
	loadErr := &common.LoadError{Source: "mem://sales", Err: errors.New("connection refused")}
	loader := &fakeLoader{err: loadErr}
	svc, err := NewService(loader, testConfig(), nil)
	require.NoError(t, err)

	_, err = svc.Render(context.Background(), Selection{})
	assert.ErrorIs(t, err, common.ErrLoad)

	_, err = svc.Render(context.Background(), Selection{City: "Nagoya"})
	assert.ErrorIs(t, err, ErrUnknownCity)
	assert.Equal(t, 1, loader.loadCalls, "unknown cities are rejected before loading")
}

func TestService_Refresh(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	svc, err := NewService(loader, testConfig(), nil)
	require.NoError(t, err)

	table, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())
	assert.Equal(t, 1, loader.invalidateCalls)
	assert.Equal(t, 1, loader.loadCalls)
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	_, err := NewService(&fakeLoader{}, Config{}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = NewService(nil, testConfig(), nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "$ 0.00"},
		{"12.5", "$ 12.50"},
		{"1234.567", "$ 1,234.57"},
		{"1234567.1", "$ 1,234,567.10"},
		{"-1234.5", "$ -1,234.50"},
		{"-0.004", "$ 0.00"},
		{"-0.5", "$ -0.50"},
		{"123456789012345678.91", "$ 123,456,789,012,345,678.91"},
		{"99999999999999.995", "$ 100,000,000,000,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestFormatChange(t *testing.T) {
	assert.Equal(t, "50.00% vs. Last Year", FormatChange(50))
	assert.Equal(t, "-10.00% vs. Last Year", FormatChange(-10))
	assert.Equal(t, NotAvailable, FormatChange(math.NaN()))
	assert.Equal(t, NotAvailable, FormatChange(math.Inf(1)))
	assert.Equal(t, NotAvailable, FormatChange(math.Inf(-1)))
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "Mar", BucketLabel(model.DimensionMonth, model.Bucket{Key: model.NewNullString("3")}))
	assert.Equal(t, model.NullLabel, BucketLabel(model.DimensionMonth, model.Bucket{}))
	assert.Equal(t, "Books", BucketLabel(model.DimensionCategory, model.Bucket{Key: model.NewNullString("Books")}))
}

func TestNewSnapshotView_JSON(t *testing.T) {
	svc, err := NewService(&fakeLoader{table: sampleTable()}, testConfig(), nil)
	require.NoError(t, err)
	snapshot, err := svc.Render(context.Background(), Selection{City: "Tokyo"})
	require.NoError(t, err)

	data, err := json.Marshal(NewSnapshotView(snapshot))
	require.NoError(t, err)

	var decoded struct {
		Metrics []struct {
			Total       *string  `json:"total"`
			Change      *float64 `json:"change"`
			City        string   `json:"city"`
			Display     string   `json:"display"`
			ChangeLabel string   `json:"change_label"`
		} `json:"metrics"`
		Monthly struct {
			Buckets []struct {
				Label string `json:"label"`
			} `json:"buckets"`
		} `json:"monthly"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.Metrics, 3)
	tokyo := decoded.Metrics[0]
	require.NotNil(t, tokyo.Change)
	assert.InDelta(t, 50.0, *tokyo.Change, 1e-9)
	assert.Equal(t, "$ 150.00", tokyo.Display)
	require.NotNil(t, tokyo.Total)
	assert.Equal(t, "150", *tokyo.Total)

	yokohama := decoded.Metrics[1]
	assert.Nil(t, yokohama.Change)
	assert.Nil(t, yokohama.Total)
	assert.Equal(t, NotAvailable, yokohama.ChangeLabel)

	require.Len(t, decoded.Monthly.Buckets, 2)
	assert.Equal(t, "Jan", decoded.Monthly.Buckets[0].Label)
}
