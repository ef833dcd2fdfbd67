package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dateOn(day int) *time.Time {
	d := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func historyRow(billingDocument string, transportDate *time.Time, round, district, number string, printDate *time.Time) *ShipmentRow {
	return &ShipmentRow{
		BillingDocument: billingDocument,
		TransportBy:     "Courier",
		Box:             1,
		TransportDate:   transportDate,
		Round:           round,
		District:        district,
		TransportNo:     number,
		PrintDate:       printDate,
	}
}

func candidateRow(billingDocument string, transportDate *time.Time, round, district string) *ShipmentRow {
	return historyRow(billingDocument, transportDate, round, district, "", nil)
}

func TestAllocateMintsFreshNumbersInSequence(t *testing.T) {
	candidates := []*ShipmentRow{
		candidateRow("INV-1", dateOn(10), "1", "North"),
		candidateRow("INV-2", dateOn(10), "1", "South"),
		candidateRow("INV-3", dateOn(11), "1", "North"),
	}

	assignments, err := AllocateTransportNumbers(nil, candidates, testClock)
	require.NoError(t, err)
	require.Len(t, assignments, 3)

	assert.Equal(t, "26TS000001", assignments[0].Number)
	assert.Equal(t, "26TS000002", assignments[1].Number)
	assert.Equal(t, "26TS000003", assignments[2].Number)
	for _, a := range assignments {
		assert.True(t, a.Minted)
	}
}

func TestAllocateReusesExactKeyMatch(t *testing.T) {
	history := []*ShipmentRow{
		historyRow("INV-OLD", dateOn(10), "1", "North", "26TS000005", dateOn(9)),
	}
	candidates := []*ShipmentRow{
		candidateRow("INV-NEW", dateOn(10), "1", "North"),
	}

	assignments, err := AllocateTransportNumbers(history, candidates, testClock)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "26TS000005", assignments[0].Number)
	assert.False(t, assignments[0].Minted)
}

func TestAllocateMintsAboveHistoryCeiling(t *testing.T) {
	history := []*ShipmentRow{
		historyRow("INV-A", dateOn(1), "1", "West", "26TS000040", dateOn(1)),
	}
	candidates := []*ShipmentRow{
		candidateRow("INV-B", dateOn(10), "1", "North"),
	}

	assignments, err := AllocateTransportNumbers(history, candidates, testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000041", assignments[0].Number)
	assert.True(t, assignments[0].Minted)
}

func TestAllocateSharedNumberOriginKeeps(t *testing.T) {
	// 26TS000010 was first printed under the North key, later copied onto a
	// South row. North keeps it, South must mint.
	history := []*ShipmentRow{
		historyRow("INV-N", dateOn(10), "1", "North", "26TS000010", dateOn(5)),
		historyRow("INV-S", dateOn(10), "1", "South", "26TS000010", dateOn(7)),
	}

	north, err := AllocateTransportNumbers(history, []*ShipmentRow{
		candidateRow("INV-N2", dateOn(10), "1", "North"),
	}, testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000010", north[0].Number)
	assert.False(t, north[0].Minted)

	south, err := AllocateTransportNumbers(history, []*ShipmentRow{
		candidateRow("INV-S2", dateOn(10), "1", "South"),
	}, testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000011", south[0].Number)
	assert.True(t, south[0].Minted)
}

func TestAllocateUnprintedHolderIsNeverOrigin(t *testing.T) {
	// The North holder has no print date, so it cannot anchor the number
	// even though it appears first. The South holder printed and wins.
	history := []*ShipmentRow{
		historyRow("INV-N", dateOn(10), "1", "North", "26TS000010", nil),
		historyRow("INV-S", dateOn(10), "1", "South", "26TS000010", dateOn(8)),
	}

	north, err := AllocateTransportNumbers(history, []*ShipmentRow{
		candidateRow("INV-N2", dateOn(10), "1", "North"),
	}, testClock)
	require.NoError(t, err)
	assert.True(t, north[0].Minted)

	south, err := AllocateTransportNumbers(history, []*ShipmentRow{
		candidateRow("INV-S2", dateOn(10), "1", "South"),
	}, testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000010", south[0].Number)
	assert.False(t, south[0].Minted)
}

func TestAllocateSharedNumberNoPrintedHolderMints(t *testing.T) {
	history := []*ShipmentRow{
		historyRow("INV-N", dateOn(10), "1", "North", "26TS000010", nil),
		historyRow("INV-S", dateOn(10), "1", "South", "26TS000010", nil),
	}

	assignments, err := AllocateTransportNumbers(history, []*ShipmentRow{
		candidateRow("INV-N2", dateOn(10), "1", "North"),
	}, testClock)
	require.NoError(t, err)
	assert.True(t, assignments[0].Minted)
	assert.Equal(t, "26TS000011", assignments[0].Number)
}

func TestAllocateLedgerPreventsIntraRunCollisions(t *testing.T) {
	history := []*ShipmentRow{
		historyRow("INV-A", dateOn(1), "1", "West", "26TS000002", dateOn(1)),
	}
	candidates := []*ShipmentRow{
		candidateRow("INV-1", dateOn(10), "1", "North"),
		candidateRow("INV-2", dateOn(10), "2", "North"),
		candidateRow("INV-3", dateOn(10), "3", "North"),
	}

	assignments, err := AllocateTransportNumbers(history, candidates, testClock)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, a := range assignments {
		assert.False(t, seen[a.Number], "duplicate number %s", a.Number)
		seen[a.Number] = true
	}
	assert.Equal(t, "26TS000003", assignments[0].Number)
	assert.Equal(t, "26TS000004", assignments[1].Number)
	assert.Equal(t, "26TS000005", assignments[2].Number)
}

func TestAllocateBlankRoundMatchesDefaultRound(t *testing.T) {
	history := []*ShipmentRow{
		historyRow("INV-OLD", dateOn(10), "", "North", "26TS000007", dateOn(9)),
	}
	candidates := []*ShipmentRow{
		candidateRow("INV-NEW", dateOn(10), "1", "North"),
	}

	assignments, err := AllocateTransportNumbers(history, candidates, testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000007", assignments[0].Number)
	assert.False(t, assignments[0].Minted)
}

func TestNewLedgerSkipsBlankNumbers(t *testing.T) {
	history := []*ShipmentRow{
		historyRow("INV-1", dateOn(1), "1", "", "26TS000001", nil),
		historyRow("INV-2", dateOn(2), "1", "", "", nil),
	}

	ledger := NewLedger(history)
	tn, err := ledger.Mint(testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000002", tn.Value())

	// A second mint sees the first one.
	tn, err = ledger.Mint(testClock)
	require.NoError(t, err)
	assert.Equal(t, "26TS000003", tn.Value())
}
