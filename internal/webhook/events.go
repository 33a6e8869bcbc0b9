package webhook

// Recognized event vocabulary. A webhook subscribed to "*" receives all.
const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderDelivered = "order.delivered"
	EventOrderCancelled = "order.cancelled"

	EventDeliveryAssigned  = "delivery.assigned"
	EventDeliveryPickedUp  = "delivery.picked_up"
	EventDeliveryCompleted = "delivery.completed"

	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
	EventPaymentDisputed  = "payment.disputed"

	EventNFTMinted      = "nft.minted"
	EventEscrowFunded   = "escrow.funded"
	EventEscrowReleased = "escrow.released"

	EventDriverAssigned  = "driver.assigned"
	EventInventorySynced = "inventory.synced"
)
