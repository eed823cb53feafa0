package warehouse

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/salesdesk/salesdesk/internal/api"
)

// Acceptance thresholds for scan suggestions.
const (
	SupplierThreshold = 0.4
	ProductThreshold  = 0.3
)

const (
	candidateSize  = 20
	lookupParallel = 4
)

// Catalog provides match candidates.
type Catalog interface {
	AllSuppliers(ctx context.Context) ([]api.Supplier, error)
	ListProducts(ctx context.Context, f api.ProductFilter) (api.Page[api.Product], error)
}

// Suggestion is the draft built from a scanned invoice. It is never
// submitted on its own; it only prefills the receipt form.
type Suggestion struct {
	Scan          api.InvoiceScan
	Supplier      *api.Supplier
	SupplierScore float64
	Lines         []SuggestedLine
}

// SuggestedLine pairs a scanned item with its best catalogue product.
// Product is nil when nothing scored above the threshold.
type SuggestedLine struct {
	Item    api.InvoiceScanItem
	Product *api.Product
	Score   float64
}

// Unmatched lists scanned product names without a suggestion.
func (s Suggestion) Unmatched() []string {
	var out []string
	for _, l := range s.Lines {
		if l.Product == nil {
			out = append(out, l.Item.ProductName)
		}
	}
	return out
}

// Matcher scores scanned names against catalogue names.
type Matcher struct {
	catalog Catalog
	metric  *metrics.SorensenDice
}

func NewMatcher(catalog Catalog) *Matcher {
	m := metrics.NewSorensenDice()
	m.CaseSensitive = false
	m.NgramSize = 2
	return &Matcher{catalog: catalog, metric: m}
}

// Similarity compares two names after folding case and Vietnamese
// diacritics. The result is in [0, 1].
func (m *Matcher) Similarity(a, b string) float64 {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 1
	}
	return strutil.Similarity(fa, fb, m.metric)
}

// Suggest matches the scan's supplier and items against the catalogue.
func (m *Matcher) Suggest(ctx context.Context, scan api.InvoiceScan) (Suggestion, error) {
	out := Suggestion{Scan: scan, Lines: make([]SuggestedLine, len(scan.Items))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupParallel)
	g.Go(func() error {
		if strings.TrimSpace(scan.SupplierName) == "" {
			return nil
		}
		suppliers, err := m.catalog.AllSuppliers(gctx)
		if err != nil {
			return err
		}
		out.Supplier, out.SupplierScore = m.BestSupplier(scan.SupplierName, suppliers)
		return nil
	})
	for i, item := range scan.Items {
		out.Lines[i].Item = item
		g.Go(func() error {
			candidates, err := m.productCandidates(gctx, item.ProductName)
			if err != nil {
				return err
			}
			out.Lines[i].Product, out.Lines[i].Score = m.BestProduct(item.ProductName, candidates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Suggestion{}, err
	}
	return out, nil
}

// BestSupplier returns the highest scoring supplier at or above
// SupplierThreshold.
func (m *Matcher) BestSupplier(name string, suppliers []api.Supplier) (*api.Supplier, float64) {
	best, score := -1, 0.0
	for i, s := range suppliers {
		if sc := m.Similarity(name, s.Name); sc > score {
			best, score = i, sc
		}
	}
	if best < 0 || score < SupplierThreshold {
		return nil, score
	}
	picked := suppliers[best]
	return &picked, score
}

// BestProduct returns the highest scoring product at or above
// ProductThreshold.
func (m *Matcher) BestProduct(name string, products []api.Product) (*api.Product, float64) {
	best, score := -1, 0.0
	for i, p := range products {
		if sc := m.Similarity(name, p.Name); sc > score {
			best, score = i, sc
		}
	}
	if best < 0 || score < ProductThreshold {
		return nil, score
	}
	picked := products[best]
	return &picked, score
}

// productCandidates searches with the full name first and falls back to its
// longest words, since the backend search is a substring match.
func (m *Matcher) productCandidates(ctx context.Context, name string) ([]api.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	seen := make(map[int64]bool)
	var out []api.Product
	for _, term := range searchTerms(name) {
		page, err := m.catalog.ListProducts(ctx, api.ProductFilter{Size: candidateSize, Search: term})
		if err != nil {
			return nil, err
		}
		for _, p := range page.Content {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			break
		}
	}
	return out, nil
}

func searchTerms(name string) []string {
	terms := []string{name}
	words := strings.Fields(name)
	if len(words) < 2 {
		return terms
	}
	sort.SliceStable(words, func(i, j int) bool {
		return len([]rune(words[i])) > len([]rune(words[j]))
	})
	for _, w := range words[:min(2, len(words))] {
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// Fold lower-cases s, strips diacritics and collapses whitespace. "Đ" has no
// decomposition and is mapped by hand.
func Fold(s string) string {
	s = strings.NewReplacer("Đ", "d", "đ", "d").Replace(strings.ToLower(s))
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(folded), " ")
}
