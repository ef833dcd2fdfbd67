package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/internal/infrastructure/browserprint"
	apperrors "github.com/opsconsole/shipping-service/pkg/errors"
	"github.com/opsconsole/shipping-service/pkg/logging"
)

var printClock = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func newPrintServiceForTest(repo *fakeRowRepository, bridge *fakeBridge, publisher *fakeEventPublisher) *PrintService {
	svc := NewPrintService(repo, bridge, publisher, testLogger(), nil)
	svc.delay = 0
	svc.now = func() time.Time { return printClock }
	return svc
}

func testPrinter() browserprint.Printer {
	return browserprint.Printer{
		DeviceType: "printer",
		UID:        "ZD420-01",
		Name:       "Zebra ZD420",
		Connection: "usb",
		Version:    2,
	}
}

// labelSheet renders a small label image and encodes it the way the web
// client ships sheets: a base64 PNG behind a data-URL prefix.
func labelSheet(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			img.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func printItem(t *testing.T, billingDocument, carrier string, sheets int) PrintLabelItem {
	t.Helper()
	item := PrintLabelItem{
		Row: RowInput{
			BillingDocument: billingDocument,
			SoldToName:      "SCG Distribution",
			ShipToName:      "Bangkok Depot",
			TransportBy:     carrier,
			Box:             sheets,
		},
	}
	for i := 0; i < sheets; i++ {
		item.Sheets = append(item.Sheets, labelSheet(t))
	}
	return item
}

func TestPrintLabels(t *testing.T) {
	repo := newFakeRowRepository()
	bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
	publisher := &fakeEventPublisher{}
	svc := newPrintServiceForTest(repo, bridge, publisher)

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{
		printItem(t, "INV-001", "Kerry", 2),
		printItem(t, "INV-002", "Truck", 1),
	}}

	result, err := svc.PrintLabels(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Printed)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.BulkOnly)
	assert.Equal(t, "ZD420-01", result.PrinterUID)
	assert.Len(t, bridge.sent, 2)

	// Both rows carry print state, the bulk row included.
	for _, billingDocument := range []string{"INV-001", "INV-002"} {
		row := repo.get(billingDocument)
		require.NotNil(t, row, billingDocument)
		assert.True(t, row.PrintStatus, billingDocument)
		require.NotNil(t, row.PrintDate, billingDocument)
		assert.True(t, row.PrintDate.Equal(printClock), billingDocument)
	}

	require.Len(t, publisher.events, 1)
	event, ok := publisher.events[0].(*domain.LabelsPrintedEvent)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"INV-001", "INV-002"}, event.BillingDocuments)
	assert.Equal(t, 2, event.LabelCount)
	assert.Equal(t, "ZD420-01", event.PrinterUID)
}

func TestPrintLabelsDocumentsAreZPL(t *testing.T) {
	repo := newFakeRowRepository()
	bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{printItem(t, "INV-001", "Kerry", 1)}}
	_, err := svc.PrintLabels(context.Background(), cmd)
	require.NoError(t, err)

	require.Len(t, bridge.sent, 1)
	doc := bridge.sent[0]
	assert.True(t, strings.HasPrefix(doc, "^XA\n"))
	assert.True(t, strings.HasSuffix(doc, "^XZ"))
	// 10 cm at 203 dpi.
	assert.Contains(t, doc, "^PW799\n")
	assert.Contains(t, doc, "^LL799\n")
	assert.Contains(t, doc, "^SD30\n")
	assert.Contains(t, doc, "^GFA,")
}

func TestPrintLabelsLogsEachSend(t *testing.T) {
	repo := newFakeRowRepository()
	bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	var logs bytes.Buffer
	svc.logger = logging.New(&logging.Config{
		Level:       logging.LevelDebug,
		ServiceName: "shipping-service-test",
		Output:      &logs,
	})

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{printItem(t, "INV-001", "Kerry", 2)}}
	_, err := svc.PrintLabels(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(logs.String(), "Label print"))
	assert.Contains(t, logs.String(), `"billingDocument":"INV-001"`)
	assert.Contains(t, logs.String(), `"printerUid":"ZD420-01"`)
}

func TestPrintLabelsBulkOnlyJobSkipsPrinter(t *testing.T) {
	repo := newFakeRowRepository()
	// The bridge being down must not matter when nothing prints.
	bridge := &fakeBridge{down: true}
	publisher := &fakeEventPublisher{}
	svc := newPrintServiceForTest(repo, bridge, publisher)

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{
		printItem(t, "INV-001", "truck", 1),
		printItem(t, "INV-002", "TRUCK", 2),
	}}

	result, err := svc.PrintLabels(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, result.BulkOnly)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Printed)
	assert.Empty(t, bridge.sent)

	assert.True(t, repo.get("INV-001").PrintStatus)
	assert.True(t, repo.get("INV-002").PrintStatus)
	assert.Empty(t, publisher.events)
}

func TestPrintLabelsValidation(t *testing.T) {
	tests := []struct {
		name  string
		items []PrintLabelItem
	}{
		{name: "no items", items: nil},
		{
			name: "row without boxes",
			items: []PrintLabelItem{{
				Row: RowInput{BillingDocument: "INV-001", TransportBy: "Kerry", Box: 0},
			}},
		},
		{
			name: "row without carrier",
			items: []PrintLabelItem{{
				Row: RowInput{BillingDocument: "INV-001", Box: 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRowRepository()
			bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
			svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

			_, err := svc.PrintLabels(context.Background(), PrintLabelsCommand{Items: tt.items})
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

			// Nothing persisted when validation fails.
			assert.Nil(t, repo.get("INV-001"))
		})
	}
}

func TestPrintLabelsInvalidSheet(t *testing.T) {
	repo := newFakeRowRepository()
	bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	item := printItem(t, "INV-001", "Kerry", 1)
	item.Sheets = []string{"not-a-png"}
	_, err := svc.PrintLabels(context.Background(), PrintLabelsCommand{Items: []PrintLabelItem{item}})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Empty(t, bridge.sent)
}

func TestPrintLabelsBridgeDown(t *testing.T) {
	repo := newFakeRowRepository()
	bridge := &fakeBridge{down: true}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{printItem(t, "INV-001", "Kerry", 1)}}
	_, err := svc.PrintLabels(context.Background(), cmd)
	assert.ErrorIs(t, err, browserprint.ErrNoServiceRunning)

	// Print state lands before the bridge is consulted.
	require.NotNil(t, repo.get("INV-001"))
	assert.True(t, repo.get("INV-001").PrintStatus)
}

func TestPrintLabelsNoPrinter(t *testing.T) {
	repo := newFakeRowRepository()
	bridge := &fakeBridge{}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{printItem(t, "INV-001", "Kerry", 1)}}
	_, err := svc.PrintLabels(context.Background(), cmd)
	assert.ErrorIs(t, err, browserprint.ErrNoPrinterFound)
}

func TestPrintLabelsSendFailure(t *testing.T) {
	repo := newFakeRowRepository()
	sendErr := errors.New("device busy")
	bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}, sendErr: sendErr}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	cmd := PrintLabelsCommand{Items: []PrintLabelItem{printItem(t, "INV-001", "Kerry", 1)}}
	_, err := svc.PrintLabels(context.Background(), cmd)
	assert.ErrorIs(t, err, sendErr)
}

func TestPrintLabelsUpdatesExistingRow(t *testing.T) {
	repo := newFakeRowRepository()
	day := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	seedRow(repo, "INV-001", "Kerry", day, "1", "Bang Rak", "26TS000005")

	bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
	svc := newPrintServiceForTest(repo, bridge, &fakeEventPublisher{})

	// The caller did not echo the transport number back.
	cmd := PrintLabelsCommand{Items: []PrintLabelItem{printItem(t, "INV-001", "Kerry", 1)}}
	_, err := svc.PrintLabels(context.Background(), cmd)
	require.NoError(t, err)

	row := repo.get("INV-001")
	assert.Equal(t, "row-1", row.ID)
	assert.Equal(t, "26TS000005", row.TransportNo)
	assert.True(t, row.PrintStatus)
}

func TestPrinterStatus(t *testing.T) {
	t.Run("service down", func(t *testing.T) {
		svc := newPrintServiceForTest(newFakeRowRepository(), &fakeBridge{down: true}, &fakeEventPublisher{})
		status := svc.PrinterStatus(context.Background())
		assert.False(t, status.ServiceRunning)
		assert.False(t, status.PrinterFound)
	})

	t.Run("no printer", func(t *testing.T) {
		svc := newPrintServiceForTest(newFakeRowRepository(), &fakeBridge{}, &fakeEventPublisher{})
		status := svc.PrinterStatus(context.Background())
		assert.True(t, status.ServiceRunning)
		assert.False(t, status.PrinterFound)
	})

	t.Run("printer available", func(t *testing.T) {
		bridge := &fakeBridge{printers: []browserprint.Printer{testPrinter()}}
		svc := newPrintServiceForTest(newFakeRowRepository(), bridge, &fakeEventPublisher{})
		status := svc.PrinterStatus(context.Background())
		assert.True(t, status.ServiceRunning)
		assert.True(t, status.PrinterFound)
		assert.Equal(t, "Zebra ZD420", status.PrinterName)
		assert.Equal(t, "ZD420-01", status.PrinterUID)
		assert.Equal(t, "usb", status.Connection)
	})
}
