package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/mmdatafocus/shopify_budget/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type stubSpend struct {
	lines []reports.OrderLineRow
	err   error
}

func (s *stubSpend) OrderLines(ctx context.Context, _ reports.OrderFilter) ([]reports.OrderLineRow, error) {
	return s.lines, s.err
}

func (s *stubSpend) RefundTotals(ctx context.Context, _ reports.OrderFilter) ([]reports.RefundTotal, error) {
	return nil, s.err
}

type stubBudgets struct{}

func (stubBudgets) CategoryMasters(ctx context.Context) ([]models.BudgetCategoryMaster, error) {
	return []models.BudgetCategoryMaster{{ID: 1, Name: "Wound Care"}}, nil
}

func (stubBudgets) LocationAllocations(ctx context.Context, locationId int64) ([]reports.AllocationRow, error) {
	return []reports.AllocationRow{{BudgetId: 1, CategoryId: 1, FlatAmount: decimal.NewFromInt(100)}}, nil
}

func (stubBudgets) LocationCensus(ctx context.Context, locationId int64, month string) (*models.LocationCensus, error) {
	return nil, nil
}

func newTestRouter(spend reports.SpendSource, bucket string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reporter := reports.NewReporter(spend, stubBudgets{}, nil, reports.ReporterConfig{}, logger, nil)
	r := gin.New()
	NewHandler(nil, reporter, nil, bucket, logger).Register(r)
	return r
}

func gauzeSpend() *stubSpend {
	productId := int64(1)
	category := "Wound Care"
	return &stubSpend{lines: []reports.OrderLineRow{{
		OrderLineId:     1,
		OrderId:         1,
		ProductId:       &productId,
		LineTitle:       "Gauze Pads",
		Price:           decimal.NewFromInt(5),
		Quantity:        10,
		ShopifyCategory: &category,
	}}}
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReportParameterValidation(t *testing.T) {
	r := newTestRouter(gauzeSpend(), "")
	cases := []struct {
		name   string
		target string
	}{
		{"month without year", "/api/reports/products?month=01"},
		{"bad year", "/api/reports/products?month=01&year=25"},
		{"month and budget month", "/api/reports/budget-vs-actual?month=01&year=2025&budgetMonth=01-2025"},
		{"loose budget month", "/api/reports/budget-vs-actual?budgetMonth=1-2025"},
		{"non numeric location", "/api/reports/category-spend?locationId=abc"},
		{"bad grouping", "/api/reports/category-spend?customerId=1&groupBy=vendor"},
		{"location budget bad month", "/api/locations/1/budget?budgetMonth=2025-01"},
		{"location budget bad id", "/api/locations/x/budget?budgetMonth=01-2025"},
	}
	for _, tc := range cases {
		w := serve(r, http.MethodGet, tc.target, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestReportQueryFailureIsGeneric500(t *testing.T) {
	r := newTestRouter(&stubSpend{err: errors.New("Error 1146: Table 'orders' doesn't exist")}, "")

	w := serve(r, http.MethodGet, "/api/reports/budget-vs-actual?locationId=1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "failed to fetch report" {
		t.Fatalf("store details must not leak, got %q", body["error"])
	}
}

func TestBudgetVsActualReport(t *testing.T) {
	r := newTestRouter(gauzeSpend(), "")

	w := serve(r, http.MethodGet, "/api/reports/budget-vs-actual?locationId=1&month=01&year=2025", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var report struct {
		Categories []struct {
			CategoryName string          `json:"category_name"`
			TotalValue   decimal.Decimal `json:"total_value"`
			Budget       decimal.Decimal `json:"budget"`
			Variance     decimal.Decimal `json:"variance"`
		} `json:"categories"`
		TotalBudget decimal.Decimal `json:"totalBudget"`
		BudgetMonth string          `json:"budgetMonth"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Categories) != 1 || report.Categories[0].CategoryName != "Wound Care" {
		t.Fatalf("unexpected categories %+v", report.Categories)
	}
	c := report.Categories[0]
	if !c.TotalValue.Equal(decimal.NewFromInt(50)) || !c.Variance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected totals %s / %s", c.TotalValue, c.Variance)
	}
	if report.BudgetMonth != "01-2025" || !report.TotalBudget.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected report header %s / %s", report.BudgetMonth, report.TotalBudget)
	}
}

func TestProductsReportEmptyFilter(t *testing.T) {
	r := newTestRouter(gauzeSpend(), "")

	w := serve(r, http.MethodGet, "/api/reports/products", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Products      []json.RawMessage `json:"products"`
		TotalProducts int               `json:"totalProducts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Products == nil || len(body.Products) != 0 || body.TotalProducts != 0 {
		t.Fatalf("expected an empty product list, got %s", w.Body.String())
	}
}

func TestLocationBudget(t *testing.T) {
	r := newTestRouter(gauzeSpend(), "")

	for _, target := range []string{
		"/api/locations/1/budget?budgetMonth=04-2025",
		"/api/locations/1/budget",
	} {
		w := serve(r, http.MethodGet, target, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", target, w.Code, w.Body.String())
		}
		var body struct {
			Mode        string          `json:"mode"`
			TotalBudget decimal.Decimal `json:"total_budget"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Mode != reports.BudgetModeFlat || !body.TotalBudget.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("%s: unexpected budget %s / %s", target, body.Mode, body.TotalBudget)
		}
	}
}

func TestExportBudgetVsActual(t *testing.T) {
	r := newTestRouter(gauzeSpend(), "")

	w := serve(r, http.MethodGet, "/api/reports/budget-vs-actual/export?locationId=1&budgetMonth=01-2025", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != utils.XlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "budget-vs-actual-1-01-2025.xlsx") {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}

	w = serve(r, http.MethodGet, "/api/reports/budget-vs-actual/export?locationId=1&upload=true", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("upload without a bucket should be rejected, got %d", w.Code)
	}
}

func TestWriteEndpointsRejectBadInput(t *testing.T) {
	r := newTestRouter(gauzeSpend(), "")
	cases := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"category without body", http.MethodPost, "/api/budget-categories", ""},
		{"category bad json", http.MethodPost, "/api/budget-categories", `{"name":`},
		{"category get bad id", http.MethodGet, "/api/budget-categories/abc", ""},
		{"category bad id", http.MethodPut, "/api/budget-categories/abc", `{"name":"Medical"}`},
		{"toggle without flag", http.MethodPost, "/api/budget-categories/1/toggle-active", `{}`},
		{"budget bad status", http.MethodPost, "/api/budgets", `{"name":"B","status":"paused"}`},
		{"budget status missing", http.MethodPost, "/api/budgets/1/status", `{}`},
		{"budget status bad id", http.MethodPost, "/api/budgets/0/status", `{"status":"active"}`},
		{"list bad status", http.MethodGet, "/api/budgets?status=paused", ""},
		{"spend bad id", http.MethodPost, "/api/budget-allocations/x/spend", `{"spent_amount":"1"}`},
		{"census bad location", http.MethodPut, "/api/locations/0/census/01-2025", `{"census_amount":"5"}`},
	}
	for _, tc := range cases {
		w := serve(r, tc.method, tc.target, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d (%s)", tc.name, w.Code, w.Body.String())
		}
	}
}
