package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	reportKeysAll      = "report-keys:all"
	reportKeysLocation = "report-keys:location:"
)

type ReporterConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	SlowMs       int64
}

// Reporter serves reports with optional Redis caching, tracing and slow-report logging.
type Reporter struct {
	spend   SpendSource
	budgets BudgetSource
	cache   *config.Redis
	cfg     ReporterConfig
	logger  *logrus.Logger
	tracer  trace.Tracer
}

func NewReporter(spend SpendSource, budgets BudgetSource, cache *config.Redis, cfg ReporterConfig, logger *logrus.Logger, tracer trace.Tracer) *Reporter {
	if tracer == nil {
		tracer = otel.Tracer("shopify_budget/reports")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reporter{
		spend:   spend,
		budgets: budgets,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		tracer:  tracer,
	}
}

func (r *Reporter) Products(ctx context.Context, f OrderFilter) (*NetValueResult, error) {
	ctx, span := r.tracer.Start(ctx, "reports.products", trace.WithAttributes(attribute.String("filter", f.CacheKey())))
	defer span.End()
	started := time.Now()

	key := "report:products:" + f.CacheKey()
	var cached NetValueResult
	if r.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := ExtractNetValues(ctx, r.spend, f)
	if err != nil {
		return nil, r.fail(span, "Products", f, err)
	}
	r.logOverRefunds(ctx, result.OverRefunded())
	r.cacheSet(ctx, key, f.LocationId, result)
	r.logSlowReport(ctx, "products", started, f)
	return result, nil
}

func (r *Reporter) CategorySpend(ctx context.Context, f OrderFilter, g CategoryGrouping) ([]*CategorySpend, error) {
	report, err := r.budgetReport(ctx, "category-spend", f, BudgetReportOptions{Grouping: g})
	if err != nil {
		return nil, err
	}
	return report.Categories, nil
}

func (r *Reporter) BudgetVsActual(ctx context.Context, f OrderFilter, opts BudgetReportOptions) (*BudgetReport, error) {
	return r.budgetReport(ctx, "budget-vs-actual", f, opts)
}

func (r *Reporter) budgetReport(ctx context.Context, name string, f OrderFilter, opts BudgetReportOptions) (*BudgetReport, error) {
	ctx, span := r.tracer.Start(ctx, "reports."+name, trace.WithAttributes(
		attribute.String("filter", f.CacheKey()),
		attribute.String("group_by", string(opts.Grouping)),
	))
	defer span.End()
	started := time.Now()

	locationId := opts.LocationId
	if locationId == nil {
		locationId = f.LocationId
	}
	key := fmt.Sprintf("report:%s:%s:%s:%s", name, opts.Grouping, optionalId(locationId), f.CacheKey())
	var cached BudgetReport
	if r.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	report, err := BuildBudgetReport(ctx, r.spend, r.budgets, f, opts)
	if err != nil {
		return nil, r.fail(span, name, f, err)
	}
	r.logOverRefunds(ctx, report.OverRefunded)
	r.cacheSet(ctx, key, locationId, report)
	r.logSlowReport(ctx, name, started, f)
	return report, nil
}

// LocationBudget resolves the budget map of a location; never cached.
func (r *Reporter) LocationBudget(ctx context.Context, locationId int64, month string) (*BudgetMap, error) {
	ctx, span := r.tracer.Start(ctx, "reports.location-budget", trace.WithAttributes(
		attribute.Int64("location_id", locationId),
		attribute.String("month", month),
	))
	defer span.End()

	budget, err := ResolveBudget(ctx, r.budgets, locationId, month)
	if err != nil {
		return nil, r.fail(span, "LocationBudget", locationId, err)
	}
	return budget, nil
}

// InvalidateLocations drops cached reports of the given locations.
func (r *Reporter) InvalidateLocations(ctx context.Context, locationIds ...int64) {
	for _, id := range utils.UniqueSlice(locationIds) {
		if err := r.cache.DeleteSetMembers(ctx, reportKeysLocation+strconv.FormatInt(id, 10)); err != nil {
			config.LogError(r.logger, "reports", "InvalidateLocations", "delete report keys", id, err)
		}
	}
	// reports without a location may include any of them
	if err := r.cache.DeleteSetMembers(ctx, reportKeysLocation+"-"); err != nil {
		config.LogError(r.logger, "reports", "InvalidateLocations", "delete report keys", nil, err)
	}
}

// InvalidateAll drops every cached report.
func (r *Reporter) InvalidateAll(ctx context.Context) {
	if err := r.cache.DeleteSetMembers(ctx, reportKeysAll); err != nil {
		config.LogError(r.logger, "reports", "InvalidateAll", "delete report keys", nil, err)
	}
}

func (r *Reporter) fail(span trace.Span, funcName string, data any, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if utils.IsValidationError(err) {
		return err
	}
	if !errors.Is(err, ErrQueryFailed) {
		err = queryFailed(err)
	}
	config.LogError(r.logger, "reports", funcName, "build report", data, err)
	return err
}

func (r *Reporter) cacheGet(ctx context.Context, key string, dest any) bool {
	if !r.cfg.CacheEnabled {
		return false
	}
	ok, err := r.cache.GetObject(ctx, key, dest)
	if err != nil {
		config.LogError(r.logger, "reports", "cacheGet", key, nil, err)
		return false
	}
	return ok
}

func (r *Reporter) cacheSet(ctx context.Context, key string, locationId *int64, obj any) {
	if !r.cfg.CacheEnabled || !r.cache.Ready() {
		return
	}
	if err := r.cache.SetObject(ctx, key, obj, r.cfg.CacheTTL); err != nil {
		config.LogError(r.logger, "reports", "cacheSet", key, nil, err)
		return
	}
	_ = r.cache.AddSetMember(ctx, reportKeysAll, key)
	_ = r.cache.AddSetMember(ctx, reportKeysLocation+optionalId(locationId), key)
}

func (r *Reporter) logOverRefunds(ctx context.Context, rows []*ProductSpend) {
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	for _, p := range rows {
		r.logger.WithFields(logrus.Fields{
			"module":            "reports",
			"correlation_id":    cid,
			"product_id":        p.ProductId,
			"variant_id":        p.VariantId,
			"product_name":      p.ProductName,
			"gross_quantity":    p.GrossQuantity,
			"refunded_quantity": p.RefundedQuantity,
			"net_value":         p.NetValue.String(),
		}).Warn("refunds exceed sold quantity or value")
	}
}

func (r *Reporter) logSlowReport(ctx context.Context, name string, started time.Time, f OrderFilter) {
	d := time.Since(started)
	if r.cfg.SlowMs <= 0 || d.Milliseconds() < r.cfg.SlowMs {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	r.logger.WithFields(logrus.Fields{
		"module":         "reports",
		"report":         name,
		"ms":             d.Milliseconds(),
		"filter":         f.CacheKey(),
		"correlation_id": cid,
	}).Warn("slow_report")
}
