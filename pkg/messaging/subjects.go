package messaging

const (
	StockChangedSubject    = "inventory.stock.changed"
	OrdersPlacedSubject    = "orders.placed"
	OrdersCancelledSubject = "orders.cancelled"
)
