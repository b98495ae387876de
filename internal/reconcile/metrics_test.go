package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/mine-martin-12/web-POS/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestPreviousWindowShiftsBackByLength(t *testing.T) {
	from := day("2026-01-11")
	to := day("2026-01-20").AddDate(0, 0, 1).Add(-time.Nanosecond)

	prevFrom, prevTo := PreviousWindow(from, to)
	if got := prevFrom.Format(dateLayout); got != "2026-01-01" {
		t.Fatalf("expected previous window to start 2026-01-01, got %s", got)
	}
	if got := prevTo.Format(dateLayout); got != "2026-01-10" {
		t.Fatalf("expected previous window to end 2026-01-10, got %s", got)
	}
}

func TestPreviousWindowSingleDayDoesNotOverlap(t *testing.T) {
	from := day("2026-03-05")
	prevFrom, prevTo := PreviousWindow(from, from)

	if got := prevFrom.Format(dateLayout); got != "2026-03-04" {
		t.Fatalf("expected 2026-03-04, got %s", got)
	}
	if got := prevTo.Format(dateLayout); got != "2026-03-04" {
		t.Fatalf("expected 2026-03-04, got %s", got)
	}
}

func datedRecord(name string, date string, quantity int, sellingPrice string, buyingPrice string) domain.SaleRecord {
	rec := cashRecord(quantity, sellingPrice, buyingPrice)
	rec.ProductName = name
	rec.Sale.SaleDate = day(date)
	return rec
}

func TestBuildDashboardTotalsAndCounts(t *testing.T) {
	current := []domain.SaleRecord{
		datedRecord("Sugar", "2026-02-02", 3, "8", "5"),
		func() domain.SaleRecord {
			rec := creditRecord(4, "8", "5", "16")
			rec.ProductName = "Rice"
			rec.Sale.SaleDate = day("2026-02-03")
			return rec
		}(),
	}

	m := BuildDashboard(current, nil, day("2026-02-01"), day("2026-02-07"))

	if !m.TotalSalesAmount.Equal(dec("56")) {
		t.Fatalf("expected total sales 56, got %s", m.TotalSalesAmount)
	}
	if !m.ActualRevenue.Equal(dec("40")) {
		t.Fatalf("expected actual revenue 40, got %s", m.ActualRevenue)
	}
	if !m.PendingRevenue.Equal(dec("16")) {
		t.Fatalf("expected pending revenue 16, got %s", m.PendingRevenue)
	}
	if !m.TotalProfit.Equal(dec("21")) {
		t.Fatalf("expected total profit 21, got %s", m.TotalProfit)
	}
	if m.TotalSalesCount != 2 || m.PaidSalesCount != 1 || m.CreditSalesCount != 1 {
		t.Fatalf("unexpected counts: total=%d paid=%d credit=%d", m.TotalSalesCount, m.PaidSalesCount, m.CreditSalesCount)
	}
	if !m.AverageSale.Equal(dec("28")) {
		t.Fatalf("expected average sale 28, got %s", m.AverageSale)
	}
}

func TestBuildDashboardEmptyWindow(t *testing.T) {
	m := BuildDashboard(nil, nil, day("2026-02-01"), day("2026-02-07"))

	if m.TotalSalesCount != 0 {
		t.Fatalf("expected zero sales, got %d", m.TotalSalesCount)
	}
	if !m.AverageSale.IsZero() {
		t.Fatalf("expected zero average for empty window, got %s", m.AverageSale)
	}
	if !m.SalesGrowth.IsZero() {
		t.Fatalf("expected zero growth, got %s", m.SalesGrowth)
	}
	if len(m.TopProducts) != 0 || len(m.BottomProducts) != 0 || len(m.TimeSeries) != 0 {
		t.Fatalf("expected empty rankings and series")
	}
}

func TestBuildDashboardGrowth(t *testing.T) {
	current := []domain.SaleRecord{datedRecord("Sugar", "2026-02-02", 3, "10", "5")}
	previous := []domain.SaleRecord{datedRecord("Sugar", "2026-01-26", 2, "10", "5")}

	m := BuildDashboard(current, previous, day("2026-02-01"), day("2026-02-07"))
	if !m.SalesGrowth.Equal(dec("50")) {
		t.Fatalf("expected 50%% growth (30 vs 20), got %s", m.SalesGrowth)
	}
}

func TestBuildDashboardGrowthZeroWhenNoPreviousRevenue(t *testing.T) {
	current := []domain.SaleRecord{datedRecord("Sugar", "2026-02-02", 3, "10", "5")}

	// An unpaid credit sale in the previous window contributes no actual
	// revenue, so growth stays at zero rather than dividing by zero.
	prev := creditRecord(2, "10", "5", "0")
	prev.Sale.SaleDate = day("2026-01-26")

	m := BuildDashboard(current, []domain.SaleRecord{prev}, day("2026-02-01"), day("2026-02-07"))
	if !m.SalesGrowth.IsZero() {
		t.Fatalf("expected zero growth with no previous actual revenue, got %s", m.SalesGrowth)
	}
}

func TestBuildDashboardRankingsWithFewProducts(t *testing.T) {
	current := []domain.SaleRecord{
		datedRecord("Sugar", "2026-02-02", 1, "30", "5"),
		datedRecord("Rice", "2026-02-02", 1, "20", "5"),
		datedRecord("Bread", "2026-02-03", 1, "10", "5"),
	}

	m := BuildDashboard(current, nil, day("2026-02-01"), day("2026-02-07"))

	if len(m.TopProducts) != 3 {
		t.Fatalf("expected 3 top products, got %d", len(m.TopProducts))
	}
	if m.TopProducts[0].ProductName != "Sugar" || m.TopProducts[2].ProductName != "Bread" {
		t.Fatalf("unexpected top ordering: %+v", m.TopProducts)
	}

	// With fewer products than the ranking size, bottom is the whole list
	// reversed, so the two lists share members.
	if len(m.BottomProducts) != 3 {
		t.Fatalf("expected 3 bottom products, got %d", len(m.BottomProducts))
	}
	if m.BottomProducts[0].ProductName != "Bread" || m.BottomProducts[2].ProductName != "Sugar" {
		t.Fatalf("unexpected bottom ordering: %+v", m.BottomProducts)
	}
}

func TestBuildDashboardRankingsAreCapped(t *testing.T) {
	current := make([]domain.SaleRecord, 0, 12)
	for i := 0; i < 12; i++ {
		price := fmt.Sprintf("%d", (i+1)*10)
		current = append(current, datedRecord(fmt.Sprintf("Product %02d", i), "2026-02-02", 1, price, "5"))
	}

	m := BuildDashboard(current, nil, day("2026-02-01"), day("2026-02-07"))

	if len(m.TopProducts) != 10 || len(m.BottomProducts) != 10 {
		t.Fatalf("expected both rankings capped at 10, got %d and %d", len(m.TopProducts), len(m.BottomProducts))
	}
	if !m.TopProducts[0].TotalPrice.Equal(dec("120")) {
		t.Fatalf("expected best seller total 120, got %s", m.TopProducts[0].TotalPrice)
	}
	if !m.BottomProducts[0].TotalPrice.Equal(dec("10")) {
		t.Fatalf("expected worst seller total 10, got %s", m.BottomProducts[0].TotalPrice)
	}
}

func TestBuildDashboardRankingsAggregateByProduct(t *testing.T) {
	current := []domain.SaleRecord{
		datedRecord("Sugar", "2026-02-02", 2, "10", "5"),
		datedRecord("Sugar", "2026-02-03", 3, "10", "5"),
		datedRecord("Rice", "2026-02-03", 1, "40", "5"),
	}

	m := BuildDashboard(current, nil, day("2026-02-01"), day("2026-02-07"))

	if m.TopProducts[0].ProductName != "Sugar" {
		t.Fatalf("expected Sugar first with aggregated total 50, got %+v", m.TopProducts)
	}
	if !m.TopProducts[0].TotalPrice.Equal(dec("50")) || m.TopProducts[0].Quantity != 5 {
		t.Fatalf("expected Sugar total 50 qty 5, got %+v", m.TopProducts[0])
	}
}

func TestBuildDashboardTimeSeriesAscending(t *testing.T) {
	current := []domain.SaleRecord{
		datedRecord("Sugar", "2026-02-05", 1, "10", "5"),
		datedRecord("Rice", "2026-02-02", 1, "20", "5"),
		datedRecord("Bread", "2026-02-05", 1, "30", "5"),
	}

	m := BuildDashboard(current, nil, day("2026-02-01"), day("2026-02-07"))

	if len(m.TimeSeries) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(m.TimeSeries))
	}
	if m.TimeSeries[0].Date != "2026-02-02" || m.TimeSeries[1].Date != "2026-02-05" {
		t.Fatalf("expected ascending dates, got %+v", m.TimeSeries)
	}
	if !m.TimeSeries[1].TotalSales.Equal(dec("40")) {
		t.Fatalf("expected 2026-02-05 total 40, got %s", m.TimeSeries[1].TotalSales)
	}
}
