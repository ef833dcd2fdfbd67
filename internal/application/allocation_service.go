package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/pkg/logging"
	"github.com/opsconsole/shipping-service/pkg/metrics"
)

// AllocationService runs transport number allocation over the shipment rows.
type AllocationService struct {
	repo      domain.RowRepository
	publisher domain.EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewAllocationService creates an AllocationService.
func NewAllocationService(repo domain.RowRepository, publisher domain.EventPublisher, logger *logging.Logger, m *metrics.Metrics) *AllocationService {
	return &AllocationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent("allocation-service"),
		metrics:   m,
		now:       time.Now,
	}
}

// Run allocates transport numbers for every non-bulk row in the date window,
// persists the assignments, and returns the refreshed batches sorted by
// transport number. All persists run concurrently and are jointly awaited; a
// single failure fails the whole run so no partial state goes unnoticed.
func (s *AllocationService) Run(ctx context.Context, cmd AllocateTransportNumbersCommand) ([]TransportBatchDTO, error) {
	start := s.now()

	candidates, err := s.repo.SearchByTransportDate(ctx, cmd.StartDate, cmd.EndDate, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate rows: %w", err)
	}
	if len(candidates) == 0 {
		return []TransportBatchDTO{}, nil
	}

	history, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load row history: %w", err)
	}

	assignments, err := domain.AllocateTransportNumbers(history, candidates, s.now())
	if err != nil {
		return nil, err
	}

	known := make(map[string]*domain.ShipmentRow, len(history))
	for _, row := range history {
		known[row.BillingDocument] = row
	}

	var minted []string
	rowCount := 0
	g, gctx := errgroup.WithContext(ctx)
	for _, assignment := range assignments {
		if assignment.Minted {
			minted = append(minted, assignment.Number)
		}
		if s.metrics != nil {
			s.metrics.RecordTransportNumberAssigned(assignment.Minted)
		}

		for _, row := range assignment.Rows {
			rowCount++
			row := row
			number := assignment.Number
			g.Go(func() error {
				return s.persistAssignment(gctx, known, row, number)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to persist transport numbers: %w", err)
	}

	refreshed, err := s.repo.SearchByTransportDate(ctx, cmd.StartDate, cmd.EndDate, true)
	if err != nil {
		return nil, fmt.Errorf("failed to reload rows after allocation: %w", err)
	}

	batches := domain.GroupRows(refreshed)
	sort.SliceStable(batches, func(i, j int) bool {
		return batchNumber(batches[i]) < batchNumber(batches[j])
	})

	dtos := make([]TransportBatchDTO, 0, len(batches))
	mintedSet := make(map[string]bool, len(minted))
	for _, n := range minted {
		mintedSet[n] = true
	}
	for _, batch := range batches {
		dto := toBatchDTO(batch)
		dto.Minted = mintedSet[dto.TransportNo]
		dtos = append(dtos, dto)
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordAllocationRun(duration)
	}
	s.logger.AllocationRun(ctx, len(batches), rowCount, len(minted), duration)

	event := &domain.TransportNumbersAssignedEvent{
		BatchCount: len(assignments),
		RowCount:   rowCount,
		Minted:     minted,
		AssignedAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("failed to publish allocation event")
	}

	return dtos, nil
}

// persistAssignment writes one row's transport number: rows new to the
// history are created, known rows are updated in place keeping their
// identity and print state.
func (s *AllocationService) persistAssignment(ctx context.Context, known map[string]*domain.ShipmentRow, row *domain.ShipmentRow, number string) error {
	existing := known[row.BillingDocument]
	if existing == nil {
		row.AssignTransportNumber(number)
		if err := s.repo.Create(ctx, row); err != nil {
			return fmt.Errorf("create %s: %w", row.BillingDocument, err)
		}
		return nil
	}

	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	if row.PrintDate == nil {
		row.PrintDate = existing.PrintDate
		row.PrintStatus = existing.PrintStatus
	}
	row.AssignTransportNumber(number)
	if err := s.repo.Update(ctx, row); err != nil {
		return fmt.Errorf("update %s: %w", row.BillingDocument, err)
	}
	return nil
}

func batchNumber(batch *domain.Batch) string {
	if len(batch.Rows) == 0 {
		return ""
	}
	return batch.Rows[0].TransportNo
}
