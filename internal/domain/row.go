package domain

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrBillingDocumentRequired = errors.New("billing document is required")
	ErrCarrierRequired         = errors.New("carrier is required")
	ErrNoBoxes                 = errors.New("shipment has no boxes")
	ErrRowNotFound             = errors.New("shipment row not found")
)

// BulkCarrier is the carrier name that means goods travel in bulk and
// individual box labels are not printed. Matched case-insensitively.
const BulkCarrier = "truck"

// DefaultRound is assumed when a row carries no delivery round.
const DefaultRound = "1"

// ShipmentRow is the aggregate root: one billing document scheduled for
// outbound transport. Rows are keyed by billing document and accumulate
// allocation and print state over their lifetime.
type ShipmentRow struct {
	ID              string     `json:"id" bson:"_id,omitempty"`
	BillingDocument string     `json:"billingDocument" bson:"billing_document"`
	SoldToName      string     `json:"soldToName" bson:"sold_to_name"`
	ShipToName      string     `json:"shipToName" bson:"ship_to_name"`
	Address         string     `json:"address" bson:"address"`
	District        string     `json:"district" bson:"district"`
	Province        string     `json:"province" bson:"province"`
	ZipCode         string     `json:"zipCode" bson:"zip_code"`
	TransportBy     string     `json:"transportBy" bson:"transport_by"`
	Box             int        `json:"box" bson:"box"`
	TransportDate   *time.Time `json:"transportDate,omitempty" bson:"transport_date,omitempty"`
	Round           string     `json:"round" bson:"round"`
	TransportNo     string     `json:"transportNo" bson:"transport_no"`
	PrintDate       *time.Time `json:"printDate,omitempty" bson:"print_date,omitempty"`
	PrintStatus     bool       `json:"printStatus" bson:"print_status"`
	CreatedAt       time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updated_at"`

	events []DomainEvent
}

// NewShipmentRow creates a shipment row with validation.
func NewShipmentRow(billingDocument, soldToName, shipToName, transportBy string, box int) (*ShipmentRow, error) {
	if strings.TrimSpace(billingDocument) == "" {
		return nil, ErrBillingDocumentRequired
	}

	now := time.Now()
	return &ShipmentRow{
		BillingDocument: strings.TrimSpace(billingDocument),
		SoldToName:      soldToName,
		ShipToName:      shipToName,
		TransportBy:     transportBy,
		Box:             box,
		Round:           DefaultRound,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsBulk reports whether this row travels by the bulk carrier and therefore
// never gets individual box labels.
func (r *ShipmentRow) IsBulk() bool {
	return strings.EqualFold(strings.TrimSpace(r.TransportBy), BulkCarrier)
}

// CanPrint validates label-printing eligibility: at least one box and a
// known carrier.
func (r *ShipmentRow) CanPrint() error {
	if r.Box <= 0 {
		return ErrNoBoxes
	}
	if strings.TrimSpace(r.TransportBy) == "" {
		return ErrCarrierRequired
	}
	return nil
}

// MarkPrinted records a completed print run on the row.
func (r *ShipmentRow) MarkPrinted(at time.Time) {
	r.PrintDate = &at
	r.PrintStatus = true
	r.UpdatedAt = at
}

// AssignTransportNumber sets the allocated transport number.
func (r *ShipmentRow) AssignTransportNumber(number string) {
	r.TransportNo = number
	r.UpdatedAt = time.Now()
}

// HasTransportNumber reports whether a non-blank transport number is assigned.
func (r *ShipmentRow) HasTransportNumber() bool {
	return strings.TrimSpace(r.TransportNo) != ""
}

// AddEvent adds a domain event to the row
func (r *ShipmentRow) AddEvent(event DomainEvent) {
	r.events = append(r.events, event)
}

// Events returns accumulated domain events
func (r *ShipmentRow) Events() []DomainEvent {
	return r.events
}

// ClearEvents clears accumulated domain events
func (r *ShipmentRow) ClearEvents() {
	r.events = nil
}

// BatchKey identifies a transport batch: every row sharing a key rides the
// same truck and shares one transport number. Missing date and district both
// coalesce to "" so incomplete rows still batch together deterministically.
type BatchKey struct {
	TransportDate string
	Round         string
	District      string
}

// KeyFor derives the batch key for a row. The date component is the transport
// date truncated to a calendar day; a blank round falls back to DefaultRound.
func KeyFor(r *ShipmentRow) BatchKey {
	key := BatchKey{Round: DefaultRound}
	if r.TransportDate != nil {
		key.TransportDate = r.TransportDate.Format("2006-01-02")
	}
	if strings.TrimSpace(r.Round) != "" {
		key.Round = r.Round
	}
	key.District = r.District
	return key
}

// Batch is an ordered group of rows sharing one batch key.
type Batch struct {
	Key  BatchKey
	Rows []*ShipmentRow
}

// GroupRows partitions rows into batches, preserving the encounter order of
// both batches and the rows within them.
func GroupRows(rows []*ShipmentRow) []*Batch {
	index := make(map[BatchKey]*Batch)
	var batches []*Batch
	for _, row := range rows {
		key := KeyFor(row)
		batch, ok := index[key]
		if !ok {
			batch = &Batch{Key: key}
			index[key] = batch
			batches = append(batches, batch)
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batches
}
