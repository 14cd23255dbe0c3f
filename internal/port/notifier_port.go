package port

import "context"

type Kind string

const (
	KindItemAdded       Kind = "item_added"
	KindQuantityUpdated Kind = "quantity_updated"
	KindItemRemoved     Kind = "item_removed"
	KindCartCleared     Kind = "cart_cleared"
)

type Notification struct {
	Kind    Kind
	Message string
	// Key is the affected line key, empty for cart-wide notifications.
	Key string
}

// Notifier is a fire-and-forget sink for user-visible status messages.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
