package domain

import (
	"context"
	"time"
)

// RowRepository defines the interface for shipment row persistence
type RowRepository interface {
	Create(ctx context.Context, row *ShipmentRow) error
	Update(ctx context.Context, row *ShipmentRow) error
	FindByBillingDocument(ctx context.Context, billingDocument string) (*ShipmentRow, error)
	FindAll(ctx context.Context) ([]*ShipmentRow, error)
	SearchByTransportDate(ctx context.Context, from, to time.Time, excludeBulk bool) ([]*ShipmentRow, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
