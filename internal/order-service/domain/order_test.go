package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusPending, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{StatusFailed, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, int64(3000), MinorUnits(decimal.RequireFromString("30.00")))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.989")))
	assert.True(t, LineTotal(decimal.RequireFromString("10.005"), 3).Equal(decimal.RequireFromString("30.03")))
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := &Order{
		ID:    "o1",
		Items: []OrderItem{{ProductID: "p1", Quantity: 1}},
		User:  &Customer{Email: "a@b.c"},
	}
	cp := o.Clone()
	cp.Items[0].Quantity = 9
	cp.User.Email = "x@y.z"

	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, "a@b.c", o.User.Email)
}

func TestPaymentMethod_RequiresGateway(t *testing.T) {
	assert.True(t, PaymentStripe.RequiresGateway())
	for _, m := range []PaymentMethod{PaymentYape, PaymentPlin, PaymentTransfer, PaymentCOD} {
		assert.False(t, m.RequiresGateway(), m)
	}
}
