// Package testutil provides in-memory fakes of the storage ports for service tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// MemoryStore implements the order, refund, delivery and sync-failure
// repositories plus ports.DBPort. WithTransaction restores a snapshot when
// fn fails, so rollback behaviour can be asserted.
type MemoryStore struct {
	mu         sync.Mutex
	orders     map[int64]*domain.Order
	refunds    map[int64]*domain.Refund
	notes      map[int64][]string
	deliveries map[string]*domain.WebhookDelivery
	failures   map[string]*domain.SyncFailure
	nextID     int64
	nextItemID int64

	// Commits and Rollbacks count finished WithTransaction calls.
	Commits   int
	Rollbacks int
}

var (
	_ ports.OrderRepository       = (*MemoryStore)(nil)
	_ ports.RefundRepository      = (*MemoryStore)(nil)
	_ ports.DeliveryRepository    = (*MemoryStore)(nil)
	_ ports.SyncFailureRepository = (*MemoryStore)(nil)
	_ ports.DBPort                = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:     make(map[int64]*domain.Order),
		refunds:    make(map[int64]*domain.Refund),
		notes:      make(map[int64][]string),
		deliveries: make(map[string]*domain.WebhookDelivery),
		failures:   make(map[string]*domain.SyncFailure),
		nextID:     100,
		nextItemID: 1000,
	}
}

// GetDB has no pool behind it
func (s *MemoryStore) GetDB() *pgxpool.Pool { return nil }

// WithTransaction runs fn with a nil tx; repositories ignore the executor.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	snap := s.snapshot()
	if err := fn(ctx, nil); err != nil {
		s.restore(snap)
		s.mu.Lock()
		s.Rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

type storeSnapshot struct {
	orders     map[int64]*domain.Order
	refunds    map[int64]*domain.Refund
	notes      map[int64][]string
	nextID     int64
	nextItemID int64
}

func (s *MemoryStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := storeSnapshot{
		orders:     make(map[int64]*domain.Order, len(s.orders)),
		refunds:    make(map[int64]*domain.Refund, len(s.refunds)),
		notes:      make(map[int64][]string, len(s.notes)),
		nextID:     s.nextID,
		nextItemID: s.nextItemID,
	}
	for id, o := range s.orders {
		snap.orders[id] = cloneOrder(o)
	}
	for id, r := range s.refunds {
		snap.refunds[id] = cloneRefund(r)
	}
	for id, n := range s.notes {
		snap.notes[id] = append([]string(nil), n...)
	}
	return snap
}

func (s *MemoryStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.refunds = snap.refunds
	s.notes = snap.notes
	s.nextID = snap.nextID
	s.nextItemID = snap.nextItemID
}

// PutOrder seeds an order, assigning IDs to it and its items when unset.
func (s *MemoryStore) PutOrder(order *domain.Order) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == 0 {
		s.nextID++
		order.ID = s.nextID
	}
	for i := range order.Items {
		if order.Items[i].ID == 0 {
			s.nextItemID++
			order.Items[i].ID = s.nextItemID
		}
		order.Items[i].OrderID = order.ID
	}
	if order.Meta == nil {
		order.Meta = make(map[string]string)
	}
	order.RemoteID = order.Meta[domain.MetaPoyntOrderRemoteID]
	s.orders[order.ID] = cloneOrder(order)
	return order
}

// Order returns a copy of the stored order, or nil
func (s *MemoryStore) Order(id int64) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

// Refunds returns copies of the refunds of an order, oldest first
func (s *MemoryStore) Refunds(orderID int64) []*domain.Refund {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refundsOf(orderID)
}

// Notes returns the notes added to an order
func (s *MemoryStore) Notes(orderID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notes[orderID]...)
}

// GetOrder implements ports.OrderRepository
func (s *MemoryStore) GetOrder(_ context.Context, _ ports.DBTX, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

// FindObjectIDByMeta returns the lowest matching id, like ORDER BY id LIMIT 1
func (s *MemoryStore) FindObjectIDByMeta(_ context.Context, _ ports.DBTX, objectType domain.ObjectType, key, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	switch objectType {
	case domain.ObjectTypeOrder:
		for id, o := range s.orders {
			if o.Meta[key] == value {
				ids = append(ids, id)
			}
		}
	case domain.ObjectTypeRefund:
		for id, r := range s.refunds {
			if r.Meta[key] == value {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0], nil
}

// SetMeta writes metadata on an order or a refund
func (s *MemoryStore) SetMeta(_ context.Context, _ ports.DBTX, objectID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[objectID]; ok {
		o.SetMeta(key, value)
		if key == domain.MetaPoyntOrderRemoteID {
			o.RemoteID = value
		}
		return nil
	}
	if r, ok := s.refunds[objectID]; ok {
		r.SetMeta(key, value)
		return nil
	}
	return fmt.Errorf("set meta %s: object %d not found", key, objectID)
}

// DeleteMeta removes metadata from an order or a refund
func (s *MemoryStore) DeleteMeta(_ context.Context, _ ports.DBTX, objectID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[objectID]; ok {
		delete(o.Meta, key)
		return nil
	}
	if r, ok := s.refunds[objectID]; ok {
		delete(r.Meta, key)
	}
	return nil
}

// UpdateStatus implements ports.OrderRepository
func (s *MemoryStore) UpdateStatus(_ context.Context, _ ports.DBTX, orderID int64, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

// MarkPaid implements ports.OrderRepository
func (s *MemoryStore) MarkPaid(_ context.Context, _ ports.DBTX, orderID int64, transactionRef string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.TransactionRef = transactionRef
	o.PaidAt = &paidAt
	return nil
}

// AddLineItem implements ports.OrderRepository
func (s *MemoryStore) AddLineItem(_ context.Context, _ ports.DBTX, item *domain.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[item.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	s.nextItemID++
	item.ID = s.nextItemID
	o.Items = append(o.Items, *item)
	return nil
}

// UpdateTotal implements ports.OrderRepository
func (s *MemoryStore) UpdateTotal(_ context.Context, _ ports.DBTX, orderID int64, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Total = total
	return nil
}

// AddNote implements ports.OrderRepository
func (s *MemoryStore) AddNote(_ context.Context, _ ports.DBTX, orderID int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	s.notes[orderID] = append(s.notes[orderID], note)
	return nil
}

// CreateRefund implements ports.RefundRepository
func (s *MemoryStore) CreateRefund(_ context.Context, _ ports.DBTX, refund *domain.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[refund.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	s.nextID++
	refund.ID = s.nextID
	refund.CreatedAt = time.Now()
	if refund.Meta == nil {
		refund.Meta = make(map[string]string)
	}
	s.refunds[refund.ID] = cloneRefund(refund)
	return nil
}

// GetRefund implements ports.RefundRepository
func (s *MemoryStore) GetRefund(_ context.Context, _ ports.DBTX, id int64) (*domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refunds[id]
	if !ok {
		return nil, domain.ErrRefundNotFound
	}
	return cloneRefund(r), nil
}

// ListRefunds implements ports.RefundRepository
func (s *MemoryStore) ListRefunds(_ context.Context, _ ports.DBTX, orderID int64) ([]*domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refundsOf(orderID), nil
}

// DeleteRefund implements ports.RefundRepository
func (s *MemoryStore) DeleteRefund(_ context.Context, _ ports.DBTX, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refunds[id]; !ok {
		return domain.ErrRefundNotFound
	}
	delete(s.refunds, id)
	return nil
}

func (s *MemoryStore) refundsOf(orderID int64) []*domain.Refund {
	var out []*domain.Refund
	for _, r := range s.refunds {
		if r.OrderID == orderID {
			out = append(out, cloneRefund(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordReceived implements ports.DeliveryRepository
func (s *MemoryStore) RecordReceived(_ context.Context, d *domain.WebhookDelivery) (*domain.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.deliveries[d.DeliveryID]
	if !ok {
		cp := *d
		if cp.ID == "" {
			cp.ID = uuid.New().String()
		}
		cp.Status = domain.DeliveryStatusReceived
		cp.ReceivedAt = time.Now()
		stored = &cp
		s.deliveries[d.DeliveryID] = stored
	}
	stored.Attempts++
	out := *stored
	return &out, nil
}

// MarkStatus implements ports.DeliveryRepository
func (s *MemoryStore) MarkStatus(_ context.Context, deliveryID string, status domain.DeliveryStatus, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[deliveryID]
	if !ok {
		return fmt.Errorf("delivery %s not found", deliveryID)
	}
	d.Status = status
	d.LastError = lastError
	if status.IsTerminal() {
		now := time.Now()
		d.ProcessedAt = &now
	}
	return nil
}

// GetByDeliveryID implements ports.DeliveryRepository
func (s *MemoryStore) GetByDeliveryID(_ context.Context, deliveryID string) (*domain.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[deliveryID]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

// Record implements ports.SyncFailureRepository
func (s *MemoryStore) Record(_ context.Context, f *domain.SyncFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now()
	f.Attempts = 1
	cp := *f
	s.failures[f.ID] = &cp
	return nil
}

// ListUnresolved implements ports.SyncFailureRepository
func (s *MemoryStore) ListUnresolved(_ context.Context, limit int) ([]*domain.SyncFailure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.SyncFailure
	for _, f := range s.failures {
		if f.ResolvedAt == nil {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkResolved implements ports.SyncFailureRepository
func (s *MemoryStore) MarkResolved(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[id]
	if !ok {
		return fmt.Errorf("sync failure %s not found", id)
	}
	now := time.Now()
	f.ResolvedAt = &now
	return nil
}

// IncrementAttempts implements ports.SyncFailureRepository
func (s *MemoryStore) IncrementAttempts(_ context.Context, id string, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[id]
	if !ok {
		return fmt.Errorf("sync failure %s not found", id)
	}
	f.Attempts++
	f.Error = lastError
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Meta = make(map[string]string, len(o.Meta))
	for k, v := range o.Meta {
		cp.Meta[k] = v
	}
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	return &cp
}

func cloneRefund(r *domain.Refund) *domain.Refund {
	cp := *r
	cp.Meta = make(map[string]string, len(r.Meta))
	for k, v := range r.Meta {
		cp.Meta[k] = v
	}
	cp.Items = append([]domain.RefundItem(nil), r.Items...)
	return &cp
}
