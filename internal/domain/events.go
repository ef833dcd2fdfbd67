package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// TransportNumbersAssignedEvent is published after an allocation run completes
type TransportNumbersAssignedEvent struct {
	BatchCount int       `json:"batchCount"`
	RowCount   int       `json:"rowCount"`
	Minted     []string  `json:"minted"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (e *TransportNumbersAssignedEvent) EventType() string {
	return "shipping.transport-numbers-assigned"
}
func (e *TransportNumbersAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }

// LabelsPrintedEvent is published when a print job finishes
type LabelsPrintedEvent struct {
	BillingDocuments []string  `json:"billingDocuments"`
	LabelCount       int       `json:"labelCount"`
	PrinterUID       string    `json:"printerUid,omitempty"`
	PrintedAt        time.Time `json:"printedAt"`
}

func (e *LabelsPrintedEvent) EventType() string     { return "shipping.labels-printed" }
func (e *LabelsPrintedEvent) OccurredAt() time.Time { return e.PrintedAt }

// ShipmentRowUpsertedEvent is published when a row is created or updated
type ShipmentRowUpsertedEvent struct {
	BillingDocument string    `json:"billingDocument"`
	Created         bool      `json:"created"`
	UpsertedAt      time.Time `json:"upsertedAt"`
}

func (e *ShipmentRowUpsertedEvent) EventType() string     { return "shipping.row-upserted" }
func (e *ShipmentRowUpsertedEvent) OccurredAt() time.Time { return e.UpsertedAt }
