package application

import (
	"context"
	"fmt"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/pkg/errors"
	"github.com/opsconsole/shipping-service/pkg/logging"
)

// RowService handles shipment row CRUD and queries.
type RowService struct {
	repo      domain.RowRepository
	publisher domain.EventPublisher
	logger    *logging.Logger
}

// NewRowService creates a RowService.
func NewRowService(repo domain.RowRepository, publisher domain.EventPublisher, logger *logging.Logger) *RowService {
	return &RowService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent("row-service"),
	}
}

// CreateRow creates a new shipment row.
func (s *RowService) CreateRow(ctx context.Context, cmd CreateRowCommand) (*RowDTO, error) {
	row, err := domain.NewShipmentRow(cmd.Row.BillingDocument, cmd.Row.SoldToName, cmd.Row.ShipToName, cmd.Row.TransportBy, cmd.Row.Box)
	if err != nil {
		return nil, err
	}
	applyInput(row, cmd.Row)

	existing, err := s.repo.FindByBillingDocument(ctx, row.BillingDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing row: %w", err)
	}
	if existing != nil {
		return nil, errors.ErrConflict(fmt.Sprintf("row already exists for billing document %s", row.BillingDocument))
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to create row: %w", err)
	}

	s.publishUpsert(ctx, row, true)
	s.logger.Info("shipment row created", "billingDocument", row.BillingDocument)

	dto := toRowDTO(row)
	return &dto, nil
}

// UpdateRow updates an existing row by billing document.
func (s *RowService) UpdateRow(ctx context.Context, cmd UpdateRowCommand) (*RowDTO, error) {
	row, err := s.repo.FindByBillingDocument(ctx, cmd.BillingDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load row: %w", err)
	}
	if row == nil {
		return nil, errors.ErrNotFoundWithID("shipment row", cmd.BillingDocument)
	}

	applyInput(row, cmd.Row)
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to update row: %w", err)
	}

	s.publishUpsert(ctx, row, false)
	s.logger.Info("shipment row updated", "billingDocument", row.BillingDocument)

	dto := toRowDTO(row)
	return &dto, nil
}

// GetRow fetches a row by billing document.
func (s *RowService) GetRow(ctx context.Context, query GetRowQuery) (*RowDTO, error) {
	row, err := s.repo.FindByBillingDocument(ctx, query.BillingDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load row: %w", err)
	}
	if row == nil {
		return nil, errors.ErrNotFoundWithID("shipment row", query.BillingDocument)
	}
	dto := toRowDTO(row)
	return &dto, nil
}

// SearchRows lists rows by transport date window.
func (s *RowService) SearchRows(ctx context.Context, query SearchRowsQuery) ([]RowDTO, error) {
	rows, err := s.repo.SearchByTransportDate(ctx, query.StartDate, query.EndDate, query.ExcludeBulk)
	if err != nil {
		return nil, fmt.Errorf("failed to search rows: %w", err)
	}
	return toRowDTOs(rows), nil
}

func (s *RowService) publishUpsert(ctx context.Context, row *domain.ShipmentRow, created bool) {
	row.AddEvent(&domain.ShipmentRowUpsertedEvent{
		BillingDocument: row.BillingDocument,
		Created:         created,
		UpsertedAt:      row.UpdatedAt,
	})
	if err := s.publisher.PublishAll(ctx, row.Events()); err != nil {
		s.logger.WithError(err).Warn("failed to publish row events")
	}
	row.ClearEvents()
}
