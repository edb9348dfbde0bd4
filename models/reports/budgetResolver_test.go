package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/utils"
)

func woundCareBudgets() *fakeBudgets {
	return &fakeBudgets{
		masters: []models.BudgetCategoryMaster{
			{ID: 1, Name: "Medical>Wound Care"},
			{ID: 2, Name: "Incontinence"},
		},
		allocs: map[int64][]AllocationRow{
			1: {
				{BudgetId: 10, CategoryId: 1, FlatAmount: dec("100"), PpdRate: ppd("100")},
				{BudgetId: 10, CategoryId: 2, FlatAmount: dec("250")},
			},
		},
		census: map[string]*models.LocationCensus{
			"04-2025": {LocationId: 1, Month: "04-2025", CensusAmount: dec("5")},
		},
	}
}

func TestResolveBudgetModes(t *testing.T) {
	src := woundCareBudgets()
	cases := []struct {
		name       string
		month      string
		mode       string
		woundCare  string
		woundSrc   string
		continence string
		total      string
	}{
		{"no month is flat", "", BudgetModeFlat, "100", BudgetSourceFlat, "250", "350"},
		{"month without census is flat", "05-2025", BudgetModeFlat, "100", BudgetSourceFlat, "250", "350"},
		// 5 residents x 30 days x 100 per day
		{"census month", "04-2025", BudgetModeCensus, "15000", BudgetSourceCensus, "250", "15250"},
	}
	for _, tc := range cases {
		budget, err := ResolveBudget(context.Background(), src, 1, tc.month)
		if err != nil {
			t.Fatalf("%s: ResolveBudget: %v", tc.name, err)
		}
		if budget.Mode != tc.mode {
			t.Fatalf("%s: expected mode %s, got %s", tc.name, tc.mode, budget.Mode)
		}
		wound := budget.Lines[1]
		if wound == nil || !wound.Amount.Equal(dec(tc.woundCare)) || wound.Source != tc.woundSrc {
			t.Fatalf("%s: unexpected wound care line %+v", tc.name, wound)
		}
		if !budget.Lines[2].Amount.Equal(dec(tc.continence)) || budget.Lines[2].Source != BudgetSourceFlat {
			t.Fatalf("%s: unexpected incontinence line %+v", tc.name, budget.Lines[2])
		}
		if !budget.Total().Equal(dec(tc.total)) {
			t.Fatalf("%s: expected total %s, got %s", tc.name, tc.total, budget.Total())
		}
	}
}

func TestResolveBudgetCensusUsesDaysInMonth(t *testing.T) {
	src := woundCareBudgets()
	src.census["02-2024"] = &models.LocationCensus{LocationId: 1, Month: "02-2024", CensusAmount: dec("2")}

	budget, err := ResolveBudget(context.Background(), src, 1, "02-2024")
	if err != nil {
		t.Fatalf("ResolveBudget: %v", err)
	}
	if budget.DaysInMonth != 29 {
		t.Fatalf("expected 29 days, got %d", budget.DaysInMonth)
	}
	// 2 x 29 x 100
	if !budget.Lines[1].Amount.Equal(dec("5800")) {
		t.Fatalf("expected 5800, got %s", budget.Lines[1].Amount)
	}
}

func TestResolveBudgetSumsBudgetsPerCategory(t *testing.T) {
	src := woundCareBudgets()
	src.allocs[1] = append(src.allocs[1], AllocationRow{BudgetId: 11, CategoryId: 1, FlatAmount: dec("40")})

	flat, err := ResolveBudget(context.Background(), src, 1, "")
	if err != nil {
		t.Fatalf("ResolveBudget: %v", err)
	}
	if !flat.Lines[1].Amount.Equal(dec("140")) || flat.Lines[1].Source != BudgetSourceFlat {
		t.Fatalf("unexpected flat line %+v", flat.Lines[1])
	}

	census, err := ResolveBudget(context.Background(), src, 1, "04-2025")
	if err != nil {
		t.Fatalf("ResolveBudget: %v", err)
	}
	if !census.Lines[1].Amount.Equal(dec("15040")) || census.Lines[1].Source != BudgetSourceMixed {
		t.Fatalf("unexpected mixed line %+v", census.Lines[1])
	}
}

func TestResolveBudgetRejectsBadMonth(t *testing.T) {
	_, err := ResolveBudget(context.Background(), woundCareBudgets(), 1, "2025-04")
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveBudgetPropagatesStoreErrors(t *testing.T) {
	src := woundCareBudgets()
	src.err = errors.New("connection reset")
	if _, err := ResolveBudget(context.Background(), src, 1, "04-2025"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCategoryIndexLookup(t *testing.T) {
	idx := NewCategoryIndex([]models.BudgetCategoryMaster{
		{ID: 1, Name: "Medical>Wound Care"},
		{ID: 2, Name: "Wound &amp; Skin"},
		{ID: 3, Name: "Clinical>Supplies"},
		{ID: 4, Name: "Office>Supplies"},
	})
	cases := []struct {
		name   string
		wantId int
		ok     bool
	}{
		{"Medical>Wound Care", 1, true},
		{"medical>wound care", 1, true},
		{"Wound Care", 1, true},
		{"Wound & Skin", 2, true},
		{"Wound &amp;amp; Skin", 2, true},
		// leaf is ambiguous
		{"Supplies", 0, false},
		{"Clinical>Supplies", 3, true},
		{"Pharmacy", 0, false},
		// a parent path never falls back to another parent's leaf
		{"Surgical>Wound Care", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		id, _, ok := idx.Lookup(tc.name)
		if ok != tc.ok || id != tc.wantId {
			t.Fatalf("Lookup(%q) expected (%d, %v), got (%d, %v)", tc.name, tc.wantId, tc.ok, id, ok)
		}
	}
	if got := idx.Name(2); got != "Wound & Skin" {
		t.Fatalf("expected decoded master name, got %q", got)
	}

	single := NewCategoryIndex([]models.BudgetCategoryMaster{{ID: 3, Name: "Clinical>Supplies"}})
	if id, name, ok := single.Lookup("Office>Supplies"); ok {
		t.Fatalf("Office>Supplies must not match another parent, got (%d, %q)", id, name)
	}
	if id, _, ok := single.Lookup("Supplies"); !ok || id != 3 {
		t.Fatalf("bare unique leaf should match, got (%d, %v)", id, ok)
	}
}
