package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/mmdatafocus/shopify_budget/models/reports"
	"github.com/mmdatafocus/shopify_budget/utils"
)

// parseOrderFilter reads the report filters from the query string.
func parseOrderFilter(c *gin.Context) (reports.OrderFilter, error) {
	var f reports.OrderFilter
	var err error

	ids := []struct {
		name string
		dest **int64
	}{
		{"customerId", &f.CustomerId},
		{"locationId", &f.LocationId},
		{"companyLocationId", &f.CompanyLocationId},
	}
	for _, id := range ids {
		if *id.dest, err = utils.ParseOptionalInt64(c.Query(id.name)); err != nil {
			return f, utils.NewValidationError(id.name, "must be an integer")
		}
	}

	month, year := strings.TrimSpace(c.Query("month")), strings.TrimSpace(c.Query("year"))
	budgetMonth := strings.TrimSpace(c.Query("budgetMonth"))
	if budgetMonth != "" && (month != "" || year != "") {
		return f, utils.NewValidationError("budgetMonth", "use either month/year or budgetMonth")
	}
	if month != "" || year != "" {
		bm, err := models.MonthYear(month, year)
		if err != nil {
			return f, utils.NewValidationError("month", "month must be MM and year YYYY")
		}
		f.Month = &bm
	}
	if budgetMonth != "" {
		bm, err := models.ParseBudgetMonth(budgetMonth)
		if err != nil {
			return f, utils.NewValidationError("budgetMonth", err.Error())
		}
		f.BudgetMonth = &bm
	}
	return f, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		return 0, utils.NewValidationError(name, "must be a positive integer")
	}
	return v, nil
}

func int64Param(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, utils.NewValidationError(name, "must be a positive integer")
	}
	return v, nil
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

var errEmptyBody = errors.New("request body is required")

// bindJSON decodes the body; decode errors become validation errors.
func bindJSON(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return utils.NewValidationError("", errEmptyBody.Error())
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		return utils.NewValidationError("", "invalid request: "+err.Error())
	}
	return nil
}
