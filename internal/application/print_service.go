package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/internal/infrastructure/browserprint"
	"github.com/opsconsole/shipping-service/internal/raster"
	"github.com/opsconsole/shipping-service/internal/zpl"
	"github.com/opsconsole/shipping-service/pkg/errors"
	"github.com/opsconsole/shipping-service/pkg/logging"
	"github.com/opsconsole/shipping-service/pkg/metrics"
)

// interLabelDelay paces document submission so the bridge's write queue
// never backs up on slow USB printers.
const interLabelDelay = 200 * time.Millisecond

// PrinterClient is the slice of the Browser Print bridge the service needs.
type PrinterClient interface {
	IsServiceAvailable(ctx context.Context) bool
	DiscoverPrinter(ctx context.Context) (browserprint.Printer, error)
	SendDocument(ctx context.Context, printer browserprint.Printer, document string) error
}

// PrintService persists print state and drives the label printer.
type PrintService struct {
	repo      domain.RowRepository
	bridge    PrinterClient
	publisher domain.EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	delay     time.Duration
	now       func() time.Time
}

// NewPrintService creates a PrintService.
func NewPrintService(repo domain.RowRepository, bridge PrinterClient, publisher domain.EventPublisher, logger *logging.Logger, m *metrics.Metrics) *PrintService {
	return &PrintService{
		repo:      repo,
		bridge:    bridge,
		publisher: publisher,
		logger:    logger.WithComponent("print-service"),
		metrics:   m,
		delay:     interLabelDelay,
		now:       time.Now,
	}
}

// PrintLabels validates and persists the rows of a print job, then sends one
// ZPL document per rendered sheet to the printer. Bulk-carrier rows are
// persisted but never printed; a job of only bulk rows finishes without
// touching the bridge.
func (s *PrintService) PrintLabels(ctx context.Context, cmd PrintLabelsCommand) (*PrintResultDTO, error) {
	if len(cmd.Items) == 0 {
		return nil, errors.ErrValidation("no rows selected for printing")
	}

	settings := s.applyDefaults(cmd)

	rows := make([]*domain.ShipmentRow, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		row := rowFromInput(item.Row)
		if err := row.CanPrint(); err != nil {
			return nil, errors.ErrValidation(fmt.Sprintf("row %s: %v", row.BillingDocument, err))
		}
		rows = append(rows, row)
	}

	printedAt := s.now()
	if err := s.persistPrintState(ctx, rows, printedAt); err != nil {
		return nil, err
	}

	result := &PrintResultDTO{}
	bulkOnly := true
	for _, row := range rows {
		if !row.IsBulk() {
			bulkOnly = false
			break
		}
	}
	if bulkOnly {
		result.BulkOnly = true
		result.Skipped = len(rows)
		s.logger.Info("print job persisted without printing, all rows travel by bulk carrier",
			"rows", len(rows),
		)
		return result, nil
	}

	if !s.bridge.IsServiceAvailable(ctx) {
		return nil, browserprint.ErrNoServiceRunning
	}
	printer, err := s.bridge.DiscoverPrinter(ctx)
	if err != nil {
		return nil, err
	}
	result.PrinterUID = printer.UID

	widthDots := zpl.CmToDots(settings.widthCm, settings.dpi)
	heightDots := zpl.CmToDots(settings.heightCm, settings.dpi)

	var documents []labelDocument
	for i, item := range cmd.Items {
		if rows[i].IsBulk() {
			result.Skipped++
			continue
		}
		for sheetIndex, sheet := range item.Sheets {
			img, err := decodeSheet(sheet)
			if err != nil {
				return nil, errors.ErrValidation(fmt.Sprintf("row %s: invalid label image: %v", rows[i].BillingDocument, err))
			}
			bitmap, err := raster.Prepare(img, widthDots, heightDots)
			if err != nil {
				return nil, fmt.Errorf("failed to rasterize label for %s: %w", rows[i].BillingDocument, err)
			}
			documents = append(documents, labelDocument{
				billingDocument: rows[i].BillingDocument,
				sheet:           sheetIndex + 1,
				text:            zpl.Document(bitmap, widthDots, heightDots, settings.darkness),
			})
		}
	}

	for i, doc := range documents {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		start := time.Now()
		err := s.bridge.SendDocument(ctx, printer, doc.text)
		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordBridgeWrite(duration, err)
			s.metrics.RecordLabelPrinted(err == nil)
		}
		s.logger.LabelPrint(ctx, doc.billingDocument, printer.UID, doc.sheet, err == nil, duration)
		if err != nil {
			return nil, err
		}
		result.Printed++
	}

	billingDocuments := make([]string, 0, len(rows))
	for _, row := range rows {
		billingDocuments = append(billingDocuments, row.BillingDocument)
	}
	event := &domain.LabelsPrintedEvent{
		BillingDocuments: billingDocuments,
		LabelCount:       result.Printed,
		PrinterUID:       printer.UID,
		PrintedAt:        printedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("failed to publish print event")
	}

	s.logger.Info("print job completed",
		"rows", len(rows),
		"printed", result.Printed,
		"skipped", result.Skipped,
		"printerUid", printer.UID,
	)
	return result, nil
}

// PrinterStatus reports the bridge and default printer state.
func (s *PrintService) PrinterStatus(ctx context.Context) *PrinterStatusDTO {
	status := &PrinterStatusDTO{}
	printer, err := s.bridge.DiscoverPrinter(ctx)
	switch {
	case err == browserprint.ErrNoServiceRunning:
		return status
	case err != nil:
		status.ServiceRunning = true
		return status
	}
	status.ServiceRunning = true
	status.PrinterFound = true
	status.PrinterName = printer.Name
	status.PrinterUID = printer.UID
	status.Connection = printer.Connection
	return status
}

// persistPrintState upserts every row with its print timestamp before any
// document reaches the printer. Persists run concurrently and are jointly
// awaited; if one fails the job aborts so storage and paper never disagree
// silently.
func (s *PrintService) persistPrintState(ctx context.Context, rows []*domain.ShipmentRow, printedAt time.Time) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			existing, err := s.repo.FindByBillingDocument(gctx, row.BillingDocument)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", row.BillingDocument, err)
			}
			row.MarkPrinted(printedAt)
			if existing == nil {
				if err := s.repo.Create(gctx, row); err != nil {
					return fmt.Errorf("create %s: %w", row.BillingDocument, err)
				}
				return nil
			}
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			if row.TransportNo == "" {
				row.TransportNo = existing.TransportNo
			}
			if err := s.repo.Update(gctx, row); err != nil {
				return fmt.Errorf("update %s: %w", row.BillingDocument, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to persist print state: %w", err)
	}
	return nil
}

// labelDocument is one rendered sheet ready for transmission, tagged with
// its origin so per-send logging can name the row.
type labelDocument struct {
	billingDocument string
	sheet           int
	text            string
}

type printSettings struct {
	dpi      int
	darkness int
	widthCm  float64
	heightCm float64
}

func (s *PrintService) applyDefaults(cmd PrintLabelsCommand) printSettings {
	settings := printSettings{
		dpi:      cmd.DPI,
		darkness: cmd.Darkness,
		widthCm:  cmd.LabelWidthCm,
		heightCm: cmd.LabelHeightCm,
	}
	if settings.dpi <= 0 {
		settings.dpi = zpl.DefaultDPI
	}
	if settings.darkness <= 0 {
		settings.darkness = zpl.DefaultDarkness
	}
	if settings.widthCm <= 0 {
		settings.widthCm = zpl.DefaultLabelWidthCm
	}
	if settings.heightCm <= 0 {
		settings.heightCm = zpl.DefaultLabelHeightCm
	}
	return settings
}

// decodeSheet decodes a base64 PNG, tolerating a data-URL prefix.
func decodeSheet(sheet string) (image.Image, error) {
	if idx := strings.Index(sheet, ","); idx >= 0 && strings.HasPrefix(sheet, "data:") {
		sheet = sheet[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(sheet)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid png: %w", err)
	}
	return img, nil
}
