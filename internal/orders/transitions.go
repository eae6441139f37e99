package orders

import "github.com/kouprey/storefront/internal/models"

// onPayment maps a payment outcome to the fulfillment status that is
// actually stored. A paid order goes straight to packing.
var onPayment = map[models.OrderStatus]models.OrderStatus{
	models.StatusPaid: models.StatusPacked,
}

// AfterPayment returns the status to persist for a payment outcome.
func AfterPayment(outcome models.OrderStatus) models.OrderStatus {
	if next, ok := onPayment[outcome]; ok {
		return next
	}
	return outcome
}

var fulfillmentRank = map[models.OrderStatus]int{
	models.StatusPending:   0,
	models.StatusPaid:      1,
	models.StatusPacked:    2,
	models.StatusShipped:   3,
	models.StatusDelivered: 4,
}

// CanTransition reports whether staff may move an order from one status to
// another. Fulfillment only moves forward; repeating the current status is
// allowed so the shipping id can be corrected. Anything not yet delivered
// can be canceled, and a canceled order stays canceled.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	if to == models.StatusCanceled {
		return from != models.StatusDelivered
	}
	if from == models.StatusCanceled {
		return false
	}
	fr, ok := fulfillmentRank[from]
	if !ok {
		return true // unknown legacy value, let staff fix it
	}
	tr, ok := fulfillmentRank[to]
	return ok && tr > fr
}
