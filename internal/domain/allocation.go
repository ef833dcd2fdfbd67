package domain

import (
	"fmt"
	"time"
)

// Assignment is the allocation outcome for one transport batch.
type Assignment struct {
	Key    BatchKey
	Number string
	Minted bool
	Rows   []*ShipmentRow
}

// Ledger tracks every transport number visible to an allocation run: the
// history snapshot plus numbers minted earlier in the same run. Minting
// against the ledger keeps numbers strictly increasing and collision-free
// even before any row is persisted.
type Ledger struct {
	numbers []string
}

// NewLedger seeds a ledger from the non-blank numbers in the history snapshot.
func NewLedger(history []*ShipmentRow) *Ledger {
	l := &Ledger{}
	for _, row := range history {
		if row.HasTransportNumber() {
			l.numbers = append(l.numbers, row.TransportNo)
		}
	}
	return l
}

// Mint allocates the next transport number and records it in the ledger.
func (l *Ledger) Mint(now time.Time) (TransportNumber, error) {
	tn, err := NextTransportNumber(l.numbers, now)
	if err != nil {
		return TransportNumber{}, err
	}
	l.numbers = append(l.numbers, tn.Value())
	return tn, nil
}

// AllocateTransportNumbers assigns a transport number to every batch of
// candidate rows against a full history snapshot. Batches are processed in
// candidate encounter order.
//
// Per batch: an exact-key history match with a number nominates that number;
// if the same number also appears under a different key, only the origin
// batch (earliest print date among the holders) keeps it, everyone else
// mints. Rows that never printed cannot anchor a number, so a batch whose
// only claim is unprinted history mints fresh.
func AllocateTransportNumbers(history, candidates []*ShipmentRow, now time.Time) ([]*Assignment, error) {
	ledger := NewLedger(history)

	var assignments []*Assignment
	for _, batch := range GroupRows(candidates) {
		number := existingNumberFor(history, batch.Key)

		keep := number != ""
		if keep && isShared(history, number, batch.Key) {
			origin := originKeyOf(history, number)
			keep = origin != nil && *origin == batch.Key
		}

		assignment := &Assignment{Key: batch.Key, Rows: batch.Rows}
		if keep {
			assignment.Number = number
		} else {
			tn, err := ledger.Mint(now)
			if err != nil {
				return nil, fmt.Errorf("failed to mint transport number for batch %+v: %w", batch.Key, err)
			}
			assignment.Number = tn.Value()
			assignment.Minted = true
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

// existingNumberFor returns the first non-blank transport number held by a
// history row with exactly the given batch key.
func existingNumberFor(history []*ShipmentRow, key BatchKey) string {
	for _, row := range history {
		if row.HasTransportNumber() && KeyFor(row) == key {
			return row.TransportNo
		}
	}
	return ""
}

// isShared reports whether number also appears in history under a key other
// than the given one.
func isShared(history []*ShipmentRow, number string, key BatchKey) bool {
	for _, row := range history {
		if row.TransportNo == number && KeyFor(row) != key {
			return true
		}
	}
	return false
}

// originKeyOf finds the batch key that originally earned the number: the
// holder with the earliest print date. Holders that never printed are
// skipped; nil means no holder has printed yet.
func originKeyOf(history []*ShipmentRow, number string) *BatchKey {
	var origin *ShipmentRow
	for _, row := range history {
		if row.TransportNo != number || row.PrintDate == nil {
			continue
		}
		if origin == nil || row.PrintDate.Before(*origin.PrintDate) {
			origin = row
		}
	}
	if origin == nil {
		return nil
	}
	key := KeyFor(origin)
	return &key
}
