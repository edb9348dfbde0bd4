package reports

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	BudgetModeFlat   = "flat"
	BudgetModeCensus = "census"

	BudgetSourceFlat   = "flat"
	BudgetSourceCensus = "census"
	BudgetSourceMixed  = "mixed"
)

// CategoryIndex reconciles free-text category names with the master list.
type CategoryIndex struct {
	names   map[int]string
	byName  map[string]int
	byLower map[string]int
	byLeaf  map[string][]int
}

func NewCategoryIndex(masters []models.BudgetCategoryMaster) *CategoryIndex {
	idx := &CategoryIndex{
		names:   make(map[int]string, len(masters)),
		byName:  make(map[string]int, len(masters)*2),
		byLower: make(map[string]int, len(masters)),
		byLeaf:  make(map[string][]int),
	}
	for _, m := range masters {
		idx.add(m.ID, m.Name)
	}
	return idx
}

func (idx *CategoryIndex) add(id int, raw string) {
	decoded := models.DecodeCategoryName(raw)
	idx.names[id] = decoded
	idx.byName[raw] = id
	idx.byName[decoded] = id
	lower := strings.ToLower(decoded)
	if _, exists := idx.byLower[lower]; !exists {
		idx.byLower[lower] = id
	}
	leaf := strings.ToLower(models.CategoryLeaf(decoded))
	for _, existing := range idx.byLeaf[leaf] {
		if existing == id {
			return
		}
	}
	idx.byLeaf[leaf] = append(idx.byLeaf[leaf], id)
}

// Lookup tries the exact name, then a case-insensitive match, then, for names
// without a parent path, a leaf segment that is unique across the master list.
func (idx *CategoryIndex) Lookup(name string) (int, string, bool) {
	if idx == nil || name == "" {
		return 0, "", false
	}
	if id, ok := idx.byName[name]; ok {
		return id, idx.names[id], true
	}
	decoded := models.DecodeCategoryName(name)
	if id, ok := idx.byName[decoded]; ok {
		return id, idx.names[id], true
	}
	if id, ok := idx.byLower[strings.ToLower(decoded)]; ok {
		return id, idx.names[id], true
	}
	if models.CategoryParent(decoded) != "" {
		return 0, "", false
	}
	if ids := idx.byLeaf[strings.ToLower(models.CategoryLeaf(decoded))]; len(ids) == 1 {
		return ids[0], idx.names[ids[0]], true
	}
	return 0, "", false
}

func (idx *CategoryIndex) Name(id int) string {
	if idx == nil {
		return ""
	}
	return idx.names[id]
}

// BudgetLine is the resolved budget of one master category.
type BudgetLine struct {
	CategoryId   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Amount       decimal.Decimal `json:"amount"`
	Source       string          `json:"source"`
	FlatAmount   decimal.Decimal `json:"flat_amount"`
}

// BudgetMap is keyed by master category id.
type BudgetMap struct {
	LocationId  int64
	BudgetMonth string
	Mode        string
	Census      *decimal.Decimal
	DaysInMonth int
	Lines       map[int]*BudgetLine
	index       *CategoryIndex
}

// Lookup accepts raw or decoded category names.
func (b *BudgetMap) Lookup(name string) (*BudgetLine, bool) {
	if b == nil {
		return nil, false
	}
	id, _, ok := b.index.Lookup(name)
	if !ok {
		return nil, false
	}
	line, ok := b.Lines[id]
	return line, ok
}

func (b *BudgetMap) Index() *CategoryIndex {
	if b == nil {
		return nil
	}
	return b.index
}

// Sorted returns the lines ordered by category name.
func (b *BudgetMap) Sorted() []*BudgetLine {
	if b == nil {
		return nil
	}
	out := make([]*BudgetLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CategoryName != out[j].CategoryName {
			return out[i].CategoryName < out[j].CategoryName
		}
		return out[i].CategoryId < out[j].CategoryId
	})
	return out
}

func (b *BudgetMap) MarshalJSON() ([]byte, error) {
	type budgetMapJSON struct {
		LocationId  int64            `json:"location_id"`
		BudgetMonth string           `json:"budget_month,omitempty"`
		Mode        string           `json:"mode"`
		Census      *decimal.Decimal `json:"census,omitempty"`
		DaysInMonth int              `json:"days_in_month,omitempty"`
		Categories  []*BudgetLine    `json:"categories"`
		TotalBudget decimal.Decimal  `json:"total_budget"`
	}
	return json.Marshal(budgetMapJSON{
		LocationId:  b.LocationId,
		BudgetMonth: b.BudgetMonth,
		Mode:        b.Mode,
		Census:      b.Census,
		DaysInMonth: b.DaysInMonth,
		Categories:  b.Sorted(),
		TotalBudget: b.Total(),
	})
}

func (b *BudgetMap) Total() decimal.Decimal {
	total := decimal.Zero
	if b == nil {
		return total
	}
	for _, l := range b.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// ResolveBudget builds the budget of a location. With a month that has a
// census, allocations carrying a per-diem rate become census x days x rate;
// everything else uses the flat amount.
func ResolveBudget(ctx context.Context, src BudgetSource, locationId int64, month string) (*BudgetMap, error) {
	var bm models.BudgetMonth
	if month != "" {
		var err error
		if bm, err = models.ParseBudgetMonth(month); err != nil {
			return nil, utils.NewValidationError("budgetMonth", err.Error())
		}
	}

	var (
		masters []models.BudgetCategoryMaster
		allocs  []AllocationRow
		census  *models.LocationCensus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		masters, err = src.CategoryMasters(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		allocs, err = src.LocationAllocations(gctx, locationId)
		return err
	})
	if month != "" {
		g.Go(func() error {
			var err error
			census, err = src.LocationCensus(gctx, locationId, bm.String())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return resolveBudgetMap(locationId, bm, masters, allocs, census), nil
}

func resolveBudgetMap(locationId int64, bm models.BudgetMonth, masters []models.BudgetCategoryMaster, allocs []AllocationRow, census *models.LocationCensus) *BudgetMap {
	result := &BudgetMap{
		LocationId: locationId,
		Mode:       BudgetModeFlat,
		Lines:      make(map[int]*BudgetLine),
		index:      NewCategoryIndex(masters),
	}
	if !bm.IsZero() {
		result.BudgetMonth = bm.String()
	}

	var perDay decimal.Decimal
	if census != nil {
		result.Mode = BudgetModeCensus
		result.DaysInMonth = bm.DaysInMonth()
		amount := census.CensusAmount
		result.Census = &amount
		perDay = amount.Mul(decimal.NewFromInt(int64(result.DaysInMonth)))
	}

	for _, a := range allocs {
		line, ok := result.Lines[a.CategoryId]
		if !ok {
			name := result.index.Name(a.CategoryId)
			if name == "" {
				name = models.DecodeCategoryName(a.CategoryName)
			}
			line = &BudgetLine{CategoryId: a.CategoryId, CategoryName: name}
			result.Lines[a.CategoryId] = line
		}

		source := BudgetSourceFlat
		amount := a.FlatAmount
		if census != nil && a.PpdRate.Valid {
			source = BudgetSourceCensus
			amount = perDay.Mul(a.PpdRate.Decimal).Round(2)
		}
		line.Amount = line.Amount.Add(amount)
		line.FlatAmount = line.FlatAmount.Add(a.FlatAmount)
		switch {
		case line.Source == "":
			line.Source = source
		case line.Source != source:
			line.Source = BudgetSourceMixed
		}
	}
	return result
}
