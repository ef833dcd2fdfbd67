package application

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/internal/infrastructure/browserprint"
	"github.com/opsconsole/shipping-service/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "shipping-service-test",
		Output:      io.Discard,
	})
}

// fakeRowRepository is an in-memory RowRepository. Reads return clones so
// service-side mutation never leaks into stored state, mirroring how a
// database decode behaves. Writes are mutex-guarded because the services
// persist concurrently.
type fakeRowRepository struct {
	mu      sync.Mutex
	rows    map[string]*domain.ShipmentRow
	order   []string
	nextID  int
	failAll error
}

func newFakeRowRepository() *fakeRowRepository {
	return &fakeRowRepository{rows: make(map[string]*domain.ShipmentRow)}
}

func (r *fakeRowRepository) seed(rows ...*domain.ShipmentRow) {
	for _, row := range rows {
		r.mu.Lock()
		r.nextID++
		if row.ID == "" {
			row.ID = fmt.Sprintf("row-%d", r.nextID)
		}
		r.rows[row.BillingDocument] = cloneRow(row)
		r.order = append(r.order, row.BillingDocument)
		r.mu.Unlock()
	}
}

func (r *fakeRowRepository) Create(ctx context.Context, row *domain.ShipmentRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	if _, ok := r.rows[row.BillingDocument]; ok {
		return fmt.Errorf("row already exists for billing document %s", row.BillingDocument)
	}
	r.nextID++
	if row.ID == "" {
		row.ID = fmt.Sprintf("row-%d", r.nextID)
	}
	r.rows[row.BillingDocument] = cloneRow(row)
	r.order = append(r.order, row.BillingDocument)
	return nil
}

func (r *fakeRowRepository) Update(ctx context.Context, row *domain.ShipmentRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	if _, ok := r.rows[row.BillingDocument]; !ok {
		return domain.ErrRowNotFound
	}
	r.rows[row.BillingDocument] = cloneRow(row)
	return nil
}

func (r *fakeRowRepository) FindByBillingDocument(ctx context.Context, billingDocument string) (*domain.ShipmentRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	row, ok := r.rows[billingDocument]
	if !ok {
		return nil, nil
	}
	return cloneRow(row), nil
}

func (r *fakeRowRepository) FindAll(ctx context.Context) ([]*domain.ShipmentRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	out := make([]*domain.ShipmentRow, 0, len(r.order))
	for _, billingDocument := range r.order {
		out = append(out, cloneRow(r.rows[billingDocument]))
	}
	return out, nil
}

func (r *fakeRowRepository) SearchByTransportDate(ctx context.Context, from, to time.Time, excludeBulk bool) ([]*domain.ShipmentRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	var out []*domain.ShipmentRow
	for _, billingDocument := range r.order {
		row := r.rows[billingDocument]
		if row.TransportDate == nil || row.TransportDate.Before(from) || row.TransportDate.After(to) {
			continue
		}
		if excludeBulk && row.IsBulk() {
			continue
		}
		out = append(out, cloneRow(row))
	}
	return out, nil
}

func (r *fakeRowRepository) get(billingDocument string) *domain.ShipmentRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[billingDocument]
}

func cloneRow(row *domain.ShipmentRow) *domain.ShipmentRow {
	clone := *row
	return &clone
}

// fakeEventPublisher records every published event.
type fakeEventPublisher struct {
	mu      sync.Mutex
	events  []domain.DomainEvent
	failAll error
}

func (p *fakeEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll != nil {
		return p.failAll
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakeEventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// fakeBridge stands in for the Browser Print agent.
type fakeBridge struct {
	down     bool
	printers []browserprint.Printer
	sendErr  error
	sent     []string
}

func (b *fakeBridge) IsServiceAvailable(ctx context.Context) bool {
	return !b.down
}

func (b *fakeBridge) DiscoverPrinter(ctx context.Context) (browserprint.Printer, error) {
	if b.down {
		return browserprint.Printer{}, browserprint.ErrNoServiceRunning
	}
	if len(b.printers) == 0 {
		return browserprint.Printer{}, browserprint.ErrNoPrinterFound
	}
	return b.printers[0], nil
}

func (b *fakeBridge) SendDocument(ctx context.Context, printer browserprint.Printer, document string) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, document)
	return nil
}
