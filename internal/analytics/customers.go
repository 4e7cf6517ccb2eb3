package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
)

// CustomerInsight computes spend, recency and frequency figures from the
// completed sale lines of a single customer.
func CustomerInsight(lines []domain.SaleLine, now time.Time) domain.CustomerInsight {
	insight := domain.CustomerInsight{
		TotalSpent:          decimal.Zero,
		AverageOrderValue:   decimal.Zero,
		FavouriteCategories: []domain.CategoryPreference{},
		Segment:             domain.SegmentNew,
	}

	sales := Sales(lines)
	if len(sales) == 0 {
		return insight
	}

	for _, sale := range sales {
		insight.TotalSpent = insight.TotalSpent.Add(sale.Total)
	}
	insight.PurchaseCount = len(sales)
	insight.AverageOrderValue = insight.TotalSpent.Div(decimal.NewFromInt(int64(len(sales)))).Round(2)

	first := sales[0].Date
	last := sales[len(sales)-1].Date
	insight.FirstPurchase = &first
	insight.LastPurchase = &last

	days := daysBetween(last, now)
	insight.DaysSinceLast = &days
	insight.Frequency = Frequency(len(sales), daysBetween(first, now))
	insight.FavouriteCategories = favouriteCategories(lines, FavouriteLimit)

	total, _ := insight.TotalSpent.Float64()
	insight.Segment = Segment(len(sales), days, total, insight.Frequency)
	insight.Score = Score(total, insight.Frequency, len(sales), days)
	return insight
}

// Frequency is purchases per 30 days since the first purchase. Customers
// younger than one window count as a single window.
func Frequency(purchases int, daysSinceFirst int) float64 {
	if purchases == 0 {
		return 0
	}
	windows := float64(daysSinceFirst) / frequencyWindowDay
	if windows < 1 {
		windows = 1
	}
	return math.Round(float64(purchases)/windows*100) / 100
}

func Segment(purchases int, daysSinceLast int, totalSpent float64, frequency float64) domain.Segment {
	switch {
	case purchases == 0:
		return domain.SegmentNew
	case daysSinceLast > InactiveAfterDays:
		return domain.SegmentInactive
	case totalSpent > VIPMinimumSpent && frequency > 2:
		return domain.SegmentVIP
	case frequency > 1:
		return domain.SegmentFrequent
	default:
		return domain.SegmentRegular
	}
}

// Score blends monetary value, frequency, purchase count and recency into a
// 0..100 figure.
func Score(totalSpent float64, frequency float64, purchases int, daysSinceLast int) int {
	if purchases == 0 {
		return 0
	}
	monetary := math.Min(totalSpent/VIPMinimumSpent*40, 40)
	freq := math.Min(frequency*10, 30)
	count := math.Min(float64(purchases)*2, 20)
	recency := math.Max(10-float64(daysSinceLast)/30, 0)

	score := int(math.Round(monetary + freq + count + recency))
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// SegmentCounts runs the RFM segmentation for every customer present in
// lines. Customers listed in known but absent from lines count as NEW.
func SegmentCounts(lines []domain.SaleLine, known []int64, now time.Time) map[domain.Segment]int {
	byCustomer := make(map[int64][]domain.SaleLine)
	for _, line := range lines {
		byCustomer[line.CustomerID] = append(byCustomer[line.CustomerID], line)
	}

	counts := map[domain.Segment]int{
		domain.SegmentNew:      0,
		domain.SegmentInactive: 0,
		domain.SegmentVIP:      0,
		domain.SegmentFrequent: 0,
		domain.SegmentRegular:  0,
	}
	for _, id := range known {
		if _, ok := byCustomer[id]; !ok {
			counts[domain.SegmentNew]++
		}
	}
	for _, customerLines := range byCustomer {
		counts[CustomerInsight(customerLines, now).Segment]++
	}
	return counts
}

func favouriteCategories(lines []domain.SaleLine, limit int) []domain.CategoryPreference {
	byCategory := make(map[int64]*domain.CategoryPreference)
	for _, line := range lines {
		pref, ok := byCategory[line.CategoryID]
		if !ok {
			pref = &domain.CategoryPreference{CategoryID: line.CategoryID, CategoryName: line.CategoryName, Spent: decimal.Zero}
			byCategory[line.CategoryID] = pref
		}
		pref.Quantity += line.Quantity
		pref.Spent = pref.Spent.Add(line.LineTotal)
	}

	out := make([]domain.CategoryPreference, 0, len(byCategory))
	for _, pref := range byCategory {
		out = append(out, *pref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return truncate(out, limit)
}

func daysBetween(from time.Time, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
