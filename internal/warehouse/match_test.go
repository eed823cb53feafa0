package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
)

type fakeCatalog struct {
	suppliers []api.Supplier
	products  map[string][]api.Product
	searches  []string
}

func (f *fakeCatalog) AllSuppliers(ctx context.Context) ([]api.Supplier, error) {
	return f.suppliers, nil
}

func (f *fakeCatalog) ListProducts(ctx context.Context, filter api.ProductFilter) (api.Page[api.Product], error) {
	f.searches = append(f.searches, filter.Search)
	return api.Page[api.Product]{Content: f.products[filter.Search]}, nil
}

func TestFold(t *testing.T) {
	assert.Equal(t, "ao thun do", Fold("  Áo   Thun ĐỎ "))
	assert.Equal(t, "dong ho nu", Fold("Đồng hồ nữ"))
	assert.Equal(t, "", Fold("   "))
}

func TestSimilarityIgnoresDiacriticsAndCase(t *testing.T) {
	m := NewMatcher(&fakeCatalog{})
	assert.Equal(t, 1.0, m.Similarity("Đồng Hồ", "dong ho"))
	assert.Equal(t, 0.0, m.Similarity("", "dong ho"))
	assert.Greater(t, m.Similarity("Áo thun cotton trắng size M", "Áo thun cotton"), ProductThreshold)
}

func TestBestSupplierThreshold(t *testing.T) {
	m := NewMatcher(&fakeCatalog{})
	suppliers := []api.Supplier{{ID: 1, Name: "Giày Da Sài Gòn"}, {ID: 2, Name: "Thời Trang Việt"}}

	got, score := m.BestSupplier("CÔNG TY TNHH THỜI TRANG VIỆT", suppliers)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
	assert.GreaterOrEqual(t, score, SupplierThreshold)

	got, score = m.BestSupplier("XYZ", suppliers)
	assert.Nil(t, got)
	assert.Less(t, score, SupplierThreshold)

	got, _ = m.BestSupplier("Thời Trang Việt", nil)
	assert.Nil(t, got)
}

func TestSuggestFallsBackToLongestWords(t *testing.T) {
	catalog := &fakeCatalog{
		suppliers: []api.Supplier{{ID: 2, Name: "Thời Trang Việt"}},
		products: map[string][]api.Product{
			"cotton": {{ID: 7, Name: "Áo thun cotton"}, {ID: 8, Name: "Quần kaki"}},
		},
	}
	m := NewMatcher(catalog)

	s, err := m.Suggest(context.Background(), api.InvoiceScan{
		SupplierName: "Thời Trang Việt",
		Items: []api.InvoiceScanItem{
			{ProductName: "Áo thun cotton trắng size M", Quantity: 10, UnitPrice: 120000},
			{ProductName: "Khăn choàng lụa", Quantity: 2, UnitPrice: 50000},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, s.Supplier)
	require.Len(t, s.Lines, 2)
	require.NotNil(t, s.Lines[0].Product)
	assert.Equal(t, int64(7), s.Lines[0].Product.ID)
	assert.Nil(t, s.Lines[1].Product)
	assert.Equal(t, []string{"Khăn choàng lụa"}, s.Unmatched())
	assert.Contains(t, catalog.searches, "cotton")

	draft := draftFromSuggestion(s)
	assert.Equal(t, int64(2), draft.SupplierID)
	require.Len(t, draft.Lines, 1)
	assert.Equal(t, 10, draft.Lines[0].Quantity)
	assert.Equal(t, 120000.0, draft.Lines[0].EntryPrice)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"Áo"}, searchTerms("Áo"))
	assert.Equal(t, []string{"Khăn choàng lụa", "choàng", "Khăn"}, searchTerms("Khăn choàng lụa"))
}
