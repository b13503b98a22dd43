// Package lifecycle defines the order status machine and the rendering of
// an order into its customer-facing and staff-facing representations.
package lifecycle

// Status is an order's position in the fulfillment lifecycle.
type Status string

const (
	StatusNew       Status = "new"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusHandoff   Status = "handoff"
	StatusOnWay     Status = "onway"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

// Flow is the linear happy path followed by the terminal cancel state.
var Flow = []Status{
	StatusNew, StatusPreparing, StatusReady,
	StatusHandoff, StatusOnWay, StatusDelivered, StatusCanceled,
}

// Next maps each status to its legal successor statuses. The staff action
// keyboard is rendered from this table, and ApplyTransition validates
// against it as well.
var Next = map[Status][]Status{
	StatusNew:       {StatusPreparing, StatusCanceled},
	StatusPreparing: {StatusReady, StatusCanceled},
	StatusReady:     {StatusHandoff, StatusCanceled},
	StatusHandoff:   {StatusOnWay, StatusCanceled},
	StatusOnWay:     {StatusDelivered, StatusCanceled},
	StatusDelivered: {},
	StatusCanceled:  {},
}

// Icons per status, used in both renderings.
var Icons = map[Status]string{
	StatusNew:       "🆕",
	StatusPreparing: "🧑‍🍳",
	StatusReady:     "✅",
	StatusHandoff:   "📦",
	StatusOnWay:     "🚚",
	StatusDelivered: "🏁",
	StatusCanceled:  "❌",
}

// CustomerTitles are the status lines shown to the customer.
var CustomerTitles = map[Status]string{
	StatusNew:       "Заказ принят",
	StatusPreparing: "Ваш заказ готовят",
	StatusReady:     "Ваш заказ готов",
	StatusHandoff:   "Передаём курьеру",
	StatusOnWay:     "Курьер везёт ваш заказ",
	StatusDelivered: "Заказ доставлен",
	StatusCanceled:  "Заказ отменён",
}

// StaffTitles are the short labels used on the staff card and its
// action buttons.
var StaffTitles = map[Status]string{
	StatusNew:       "Новый",
	StatusPreparing: "Готовят",
	StatusReady:     "Готов",
	StatusHandoff:   "Передаём курьеру",
	StatusOnWay:     "Курьер в пути",
	StatusDelivered: "Доставлен",
	StatusCanceled:  "Отменён",
}

// Valid reports whether s is a known status.
func Valid(s Status) bool {
	_, ok := Next[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func Terminal(s Status) bool {
	return s == StatusDelivered || s == StatusCanceled
}

// CanTransition reports whether from→to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, n := range Next[from] {
		if n == to {
			return true
		}
	}
	return false
}

// CustomerTitle returns the customer status line, falling back to the raw
// value for unknown statuses.
func CustomerTitle(s Status) string {
	if t, ok := CustomerTitles[s]; ok {
		return t
	}
	return string(s)
}

// StaffTitle returns the staff label, falling back to the raw value.
func StaffTitle(s Status) string {
	if t, ok := StaffTitles[s]; ok {
		return t
	}
	return string(s)
}

func flowIndex(s Status) int {
	for i, v := range Flow {
		if v == s {
			return i
		}
	}
	return 0
}
