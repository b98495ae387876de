package reconcile

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mine-martin-12/web-POS/internal/domain"
)

const rankingSize = 10

const dateLayout = "2006-01-02"

// PreviousWindow returns the equal-length window immediately preceding
// [from, to]: both bounds shifted back by the period length in days
// (rounded up, minimum one day so a single-day window never overlaps
// itself).
func PreviousWindow(from time.Time, to time.Time) (time.Time, time.Time) {
	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return from.AddDate(0, 0, -days), to.AddDate(0, 0, -days)
}

// BuildDashboard folds the reconciled splits of a window of sales into the
// dashboard aggregate. previous is the sale set of the preceding
// equal-length window, used only for the growth percentage.
func BuildDashboard(current []domain.SaleRecord, previous []domain.SaleRecord, from time.Time, to time.Time) domain.DashboardMetrics {
	m := domain.DashboardMetrics{
		From:             from.UTC().Format(dateLayout),
		To:               to.UTC().Format(dateLayout),
		TotalSalesAmount: decimal.Zero,
		ActualRevenue:    decimal.Zero,
		PendingRevenue:   decimal.Zero,
		TotalProfit:      decimal.Zero,
		ActualProfit:     decimal.Zero,
		PendingProfit:    decimal.Zero,
		AverageSale:      decimal.Zero,
		SalesGrowth:      decimal.Zero,
	}

	byProduct := make(map[string]*domain.ProductRanking, len(current))
	byDay := make(map[string]*domain.DailyPoint, len(current))

	for _, rec := range current {
		split := Reconcile(rec)
		profit := Profit(rec.Sale.Quantity, rec.Sale.SellingPrice, rec.BuyingPrice)

		m.TotalSalesAmount = m.TotalSalesAmount.Add(rec.Sale.TotalPrice)
		m.ActualRevenue = m.ActualRevenue.Add(split.ActualRevenue)
		m.PendingRevenue = m.PendingRevenue.Add(split.PendingRevenue)
		m.TotalProfit = m.TotalProfit.Add(profit)
		m.ActualProfit = m.ActualProfit.Add(split.ActualProfit)
		m.PendingProfit = m.PendingProfit.Add(split.PendingProfit)

		m.TotalSalesCount++
		if split.Settled {
			m.PaidSalesCount++
		} else {
			m.CreditSalesCount++
		}

		ranking, ok := byProduct[rec.ProductName]
		if !ok {
			ranking = &domain.ProductRanking{ProductName: rec.ProductName, TotalPrice: decimal.Zero}
			byProduct[rec.ProductName] = ranking
		}
		ranking.TotalPrice = ranking.TotalPrice.Add(rec.Sale.TotalPrice)
		ranking.Quantity += rec.Sale.Quantity

		day := rec.Sale.SaleDate.UTC().Format(dateLayout)
		point, ok := byDay[day]
		if !ok {
			point = &domain.DailyPoint{
				Date:          day,
				TotalSales:    decimal.Zero,
				Profit:        decimal.Zero,
				ActualRevenue: decimal.Zero,
				ActualProfit:  decimal.Zero,
			}
			byDay[day] = point
		}
		point.TotalSales = point.TotalSales.Add(rec.Sale.TotalPrice)
		point.Profit = point.Profit.Add(profit)
		point.ActualRevenue = point.ActualRevenue.Add(split.ActualRevenue)
		point.ActualProfit = point.ActualProfit.Add(split.ActualProfit)
	}

	if m.TotalSalesCount > 0 {
		m.AverageSale = m.TotalSalesAmount.Div(decimal.NewFromInt(int64(m.TotalSalesCount)))
	}

	prevActual := decimal.Zero
	for _, rec := range previous {
		prevActual = prevActual.Add(Reconcile(rec).ActualRevenue)
	}
	if prevActual.Sign() > 0 {
		m.SalesGrowth = m.ActualRevenue.Sub(prevActual).Div(prevActual).Mul(hundred)
	}

	ranked := make([]domain.ProductRanking, 0, len(byProduct))
	for _, ranking := range byProduct {
		ranked = append(ranked, *ranking)
	}
	slices.SortFunc(ranked, func(a, b domain.ProductRanking) int {
		if cmp := b.TotalPrice.Cmp(a.TotalPrice); cmp != 0 {
			return cmp
		}
		if a.ProductName < b.ProductName {
			return -1
		}
		if a.ProductName > b.ProductName {
			return 1
		}
		return 0
	})
	m.TopProducts = headRankings(ranked)
	m.BottomProducts = tailRankingsReversed(ranked)

	m.TimeSeries = make([]domain.DailyPoint, 0, len(byDay))
	for _, point := range byDay {
		m.TimeSeries = append(m.TimeSeries, *point)
	}
	slices.SortFunc(m.TimeSeries, func(a, b domain.DailyPoint) int {
		if a.Date < b.Date {
			return -1
		}
		if a.Date > b.Date {
			return 1
		}
		return 0
	})

	return m
}

func headRankings(ranked []domain.ProductRanking) []domain.ProductRanking {
	n := len(ranked)
	if n > rankingSize {
		n = rankingSize
	}
	head := make([]domain.ProductRanking, n)
	copy(head, ranked[:n])
	return head
}

// tailRankingsReversed takes the last rankingSize entries of the
// descending-sorted list and reverses them. This is deliberately not an
// independent ascending sort: with fewer than 2*rankingSize products the
// top and bottom lists overlap.
func tailRankingsReversed(ranked []domain.ProductRanking) []domain.ProductRanking {
	n := len(ranked)
	start := n - rankingSize
	if start < 0 {
		start = 0
	}
	tail := make([]domain.ProductRanking, 0, n-start)
	for i := n - 1; i >= start; i-- {
		tail = append(tail, ranked[i])
	}
	return tail
}
