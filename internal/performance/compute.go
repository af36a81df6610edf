package performance

import (
	"fmt"

	"vendor-service/internal/model"

	"github.com/shopspring/decimal"
)

// FulfillmentBasis selects the denominator of the fulfillment rate
type FulfillmentBasis string

const (
	// BasisSettled divides completed orders by completed plus canceled orders,
	// so cancellations lower the rate and open orders are not counted yet.
	BasisSettled FulfillmentBasis = "settled"
	// BasisAll divides completed orders by every order the vendor has.
	BasisAll FulfillmentBasis = "all"
	// BasisCompleted divides non-canceled completed orders by completed
	// orders. It is 100 whenever any order is completed.
	BasisCompleted FulfillmentBasis = "completed"
)

// ParseFulfillmentBasis validates a configured basis name
func ParseFulfillmentBasis(s string) (FulfillmentBasis, error) {
	switch b := FulfillmentBasis(s); b {
	case BasisSettled, BasisAll, BasisCompleted:
		return b, nil
	case "":
		return BasisSettled, nil
	}
	return "", fmt.Errorf("unknown fulfillment basis %q", s)
}

// Compute derives the four KPIs from a vendor's full order set. It is pure
// and deterministic; an empty denominator yields 0 for that KPI.
func Compute(orders []model.PurchaseOrder, basis FulfillmentBasis) model.PerformanceMetrics {
	var (
		completed, canceled int
		onTime              int
		ratingSum           float64
		rated               int
		responseSum         float64
		acknowledged        int
	)

	for i := range orders {
		o := &orders[i]
		switch o.Status {
		case model.OrderCanceled:
			canceled++
			continue
		case model.OrderCompleted:
		default:
			continue
		}

		completed++
		if !o.DeliveryDate.After(o.OrderDate) {
			onTime++
		}
		if o.QualityRating != nil {
			ratingSum += *o.QualityRating
			rated++
		}
		if d, ok := o.ResponseTime(); ok {
			responseSum += d.Seconds()
			acknowledged++
		}
	}

	var fulfilled, fulfillmentBase int
	switch basis {
	case BasisAll:
		fulfilled, fulfillmentBase = completed, len(orders)
	case BasisCompleted:
		// a completed order is never canceled, so nothing is excluded
		fulfilled, fulfillmentBase = completed, completed
	default:
		fulfilled, fulfillmentBase = completed, completed+canceled
	}

	return model.PerformanceMetrics{
		OnTimeDeliveryRate:  percent(onTime, completed),
		QualityRatingAvg:    mean(ratingSum, rated),
		AverageResponseTime: mean(responseSum, acknowledged),
		FulfillmentRate:     percent(fulfilled, fulfillmentBase),
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round(decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(whole))))
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return round(decimal.NewFromFloat(sum).Div(decimal.NewFromInt(int64(n))))
}

// round keeps two decimals, half away from zero
func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
