package events

// Topic constants for domain events emitted by the service.
const (
	TopicProductRegistered   = "product.registered"
	TopicProductPriceChanged = "product.price_changed"
	TopicBillOpened          = "bill.opened"
	TopicBillItemAdded       = "bill.item_added"
	TopicBillSettled         = "bill.settled"
	TopicBillClosed          = "bill.closed"
)
