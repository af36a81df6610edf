package performance

import (
	"testing"
	"time"

	"vendor-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rating(v float64) *float64 { return &v }

// order builds a purchase order delivered deliveryOffset after its order date
func order(status model.OrderStatus, deliveryOffset time.Duration) model.PurchaseOrder {
	return model.PurchaseOrder{
		Status:       status,
		OrderDate:    base,
		DeliveryDate: base.Add(deliveryOffset),
		IssueDate:    base,
		Quantity:     1,
	}
}

func acknowledged(o model.PurchaseOrder, after time.Duration) model.PurchaseOrder {
	ack := o.IssueDate.Add(after)
	o.AcknowledgmentDate = &ack
	return o
}

func rated(o model.PurchaseOrder, r float64) model.PurchaseOrder {
	o.QualityRating = rating(r)
	return o
}

func TestComputeNoCompletedOrdersIsZero(t *testing.T) {
	cases := map[string][]model.PurchaseOrder{
		"no orders": nil,
		"pending only": {
			rated(order(model.OrderPending, 0), 5),
			acknowledged(order(model.OrderPending, -time.Hour), time.Minute),
		},
		"canceled only": {order(model.OrderCanceled, 0)},
	}

	for name, orders := range cases {
		t.Run(name, func(t *testing.T) {
			for _, basis := range []FulfillmentBasis{BasisSettled, BasisAll, BasisCompleted} {
				assert.Equal(t, model.PerformanceMetrics{}, Compute(orders, basis), "basis %s", basis)
			}
		})
	}
}

func TestComputeOnTimeDeliveryRate(t *testing.T) {
	orders := []model.PurchaseOrder{
		order(model.OrderCompleted, 0),
		order(model.OrderCompleted, -24*time.Hour),
		order(model.OrderCompleted, 24*time.Hour),
	}

	m := Compute(orders, BasisSettled)
	assert.Equal(t, 66.67, m.OnTimeDeliveryRate)
}

func TestComputeOnTimeRateNeverDecreasesWithMoreOnTimeOrders(t *testing.T) {
	orders := []model.PurchaseOrder{
		order(model.OrderCompleted, time.Hour),
		order(model.OrderCompleted, 2*time.Hour),
	}

	prev := Compute(orders, BasisSettled).OnTimeDeliveryRate
	for i := 0; i < 10; i++ {
		orders = append(orders, order(model.OrderCompleted, -time.Duration(i)*time.Minute))
		cur := Compute(orders, BasisSettled).OnTimeDeliveryRate
		assert.GreaterOrEqual(t, cur, prev)
		assert.LessOrEqual(t, cur, 100.0)
		prev = cur
	}
}

func TestComputeQualityRatingAverage(t *testing.T) {
	orders := []model.PurchaseOrder{
		rated(order(model.OrderCompleted, 0), 4),
		rated(order(model.OrderCompleted, 0), 5),
		order(model.OrderPending, 0),
		// unrated completed orders are ignored
		order(model.OrderCompleted, 0),
		// ratings outside the completed set are ignored
		rated(order(model.OrderCanceled, 0), 0),
	}

	m := Compute(orders, BasisSettled)
	assert.Equal(t, 4.5, m.QualityRatingAvg)
}

func TestComputeQualityRatingStaysInRange(t *testing.T) {
	var orders []model.PurchaseOrder
	for i := 0; i <= 50; i++ {
		orders = append(orders, rated(order(model.OrderCompleted, 0), float64(i%6)))
		m := Compute(orders, BasisSettled)
		assert.GreaterOrEqual(t, m.QualityRatingAvg, 0.0)
		assert.LessOrEqual(t, m.QualityRatingAvg, 5.0)
	}
}

func TestComputeAverageResponseTime(t *testing.T) {
	orders := []model.PurchaseOrder{
		acknowledged(order(model.OrderCompleted, 0), time.Hour),
	}
	assert.Equal(t, 3600.0, Compute(orders, BasisSettled).AverageResponseTime)

	orders = append(orders,
		acknowledged(order(model.OrderCompleted, 0), 2*time.Hour),
		// not acknowledged, not counted
		order(model.OrderCompleted, 0),
		// acknowledged but still pending, not counted
		acknowledged(order(model.OrderPending, 0), 10*time.Hour),
	)
	assert.Equal(t, 5400.0, Compute(orders, BasisSettled).AverageResponseTime)
}

func TestComputeFulfillmentRate(t *testing.T) {
	orders := []model.PurchaseOrder{
		order(model.OrderCompleted, 0),
		order(model.OrderCompleted, 0),
		order(model.OrderCompleted, 0),
		order(model.OrderCanceled, 0),
		order(model.OrderPending, 0),
	}

	tests := []struct {
		basis FulfillmentBasis
		want  float64
	}{
		{BasisSettled, 75},
		{BasisAll, 60},
		{BasisCompleted, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.basis), func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(orders, tt.basis).FulfillmentRate)
		})
	}
}

func TestComputeCompletedBasisIsAlwaysFullWhenAnyCompleted(t *testing.T) {
	orders := []model.PurchaseOrder{order(model.OrderCompleted, 0)}
	for i := 0; i < 5; i++ {
		orders = append(orders, order(model.OrderCanceled, 0), order(model.OrderPending, 0))
		assert.Equal(t, 100.0, Compute(orders, BasisCompleted).FulfillmentRate)
	}
}

func TestComputeResultIsValid(t *testing.T) {
	orders := []model.PurchaseOrder{
		acknowledged(rated(order(model.OrderCompleted, time.Hour), 3.3), 90*time.Second),
		acknowledged(rated(order(model.OrderCompleted, -time.Hour), 1.1), 30*time.Second),
		order(model.OrderCanceled, 0),
	}
	m := Compute(orders, BasisSettled)
	require.NoError(t, m.Validate())
	assert.Equal(t, 50.0, m.OnTimeDeliveryRate)
	assert.Equal(t, 2.2, m.QualityRatingAvg)
	assert.Equal(t, 60.0, m.AverageResponseTime)
	assert.Equal(t, 66.67, m.FulfillmentRate)
}

func TestParseFulfillmentBasis(t *testing.T) {
	b, err := ParseFulfillmentBasis("")
	require.NoError(t, err)
	assert.Equal(t, BasisSettled, b)

	b, err = ParseFulfillmentBasis("all")
	require.NoError(t, err)
	assert.Equal(t, BasisAll, b)

	_, err = ParseFulfillmentBasis("monthly")
	assert.Error(t, err)
}
