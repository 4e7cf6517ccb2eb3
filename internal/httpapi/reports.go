package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"comercialpereira/backend/internal/domain"
)

func (a *API) routeReports(mux *http.ServeMux) {
	reports := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermViewReports, h) }

	mux.HandleFunc("GET /api/dashboard/overview", reports(a.handleDashboardOverview))
	mux.HandleFunc("GET /api/dashboard/products", reports(a.handleDashboardProducts))
	mux.HandleFunc("GET /api/dashboard/users", reports(a.handleDashboardUsers))
	mux.HandleFunc("GET /api/dashboard/categories", reports(a.handleDashboardCategories))
	mux.HandleFunc("GET /api/dashboard/inventory", reports(a.handleDashboardInventory))
	mux.HandleFunc("GET /api/dashboard/alerts", reports(a.handleDashboardAlerts))
	mux.HandleFunc("GET /api/dashboard/charts/sales", reports(a.handleSalesChart))
	mux.HandleFunc("GET /api/dashboard/charts/categories", reports(a.handleDashboardCategories))
	mux.HandleFunc("GET /api/reports/{type}", reports(a.handleReport))
}

func periodParam(r *http.Request) domain.Period {
	return domain.Period(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period"))))
}

func (a *API) handleDashboardOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := a.service.Overview(r.Context(), periodParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (a *API) handleDashboardProducts(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	ranks, err := a.service.TopProducts(r.Context(), periodParam(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": ranks})
}

func (a *API) handleDashboardUsers(w http.ResponseWriter, r *http.Request) {
	sellers, err := a.service.UserPerformance(r.Context(), periodParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sellers})
}

func (a *API) handleDashboardCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.CategorySales(r.Context(), periodParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": categories})
}

func (a *API) handleDashboardInventory(w http.ResponseWriter, r *http.Request) {
	analysis, err := a.service.LowStockAnalysis(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleDashboardAlerts accepts types as a comma separated list or a
// repeated parameter.
func (a *API) handleDashboardAlerts(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	query := domain.AlertQuery{
		Priority: domain.AlertPriority(strings.ToUpper(q.String("priority"))),
		Limit:    q.Int("limit"),
	}
	if query.Priority == "ALL" {
		query.Priority = ""
	}
	for _, raw := range r.URL.Query()["types"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				query.Types = append(query.Types, domain.AlertType(t))
			}
		}
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	alerts, err := a.service.StockAlerts(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": alerts})
}

func (a *API) handleSalesChart(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	query := domain.SalesChartQuery{
		Period:  periodParam(r),
		GroupBy: domain.ChartGranularity(strings.ToLower(q.String("groupBy"))),
		UserID:  q.ID("userId"),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	points, err := a.service.SalesChart(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": points})
}

// handleReport serves every report type over a from/to window. Sales and
// financial reports are also available as CSV with format=csv.
func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	from := q.TimeValue("from", false)
	to := q.TimeValue("to", true)
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	asCSV := strings.EqualFold(q.String("format"), "csv")
	ctx := r.Context()

	switch reportType := domain.ReportType(r.PathValue("type")); reportType {
	case domain.ReportSales:
		report, err := a.service.SalesReport(ctx, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if asCSV {
			writeCSV(w, "sales-report.csv", dailyCSVHeader, dailyRows(report.ByDay))
			return
		}
		writeJSON(w, http.StatusOK, report)
	case domain.ReportFinancial:
		report, err := a.service.FinancialReport(ctx, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if asCSV {
			writeCSV(w, "financial-report.csv", dailyCSVHeader, dailyRows(report.CashFlow))
			return
		}
		writeJSON(w, http.StatusOK, report)
	case domain.ReportProducts:
		report, err := a.service.ProductReport(ctx, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case domain.ReportCustomers:
		report, err := a.service.CustomerReport(ctx, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case domain.ReportInventory:
		report, err := a.service.InventoryReport(ctx, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown report type %q", reportType))
	}
}

var dailyCSVHeader = []string{"date", "sales_count", "revenue", "discounts", "taxes", "net"}

func dailyRows(days []domain.DailyTotal) [][]string {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date,
			strconv.Itoa(d.SalesCount),
			d.Revenue.StringFixed(2),
			d.Discounts.StringFixed(2),
			d.Taxes.StringFixed(2),
			d.Net.StringFixed(2),
		})
	}
	return rows
}
