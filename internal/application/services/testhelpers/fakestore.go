// Package testhelpers provides an in-memory Store implementation with the
// same guarded-update semantics as the Postgres store, plus hand-written
// testify mocks for the gateway and notifier ports.
package testhelpers

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

// FakeStore keeps every entity in maps guarded by one mutex. WithinTx clones
// the maps, runs the closure against the clones and swaps them in only on
// success, so aborted transactions leave no side effects. The mutex also
// serializes concurrent transactions, mirroring the isolation the SQL store
// gets from row locks and guarded UPDATEs.
type FakeStore struct {
	mu    sync.Mutex
	owner atomic.Int64 // goroutine currently inside WithinTx; its reads on the outer store must not self-deadlock
	data  *tables
	tx    bool
}

type tables struct {
	events        map[string]domain.Event
	registrations map[string]domain.Registration
	payments      map[string]domain.Payment
	promos        map[string]domain.PromoCode
}

func NewFakeStore() *FakeStore {
	return &FakeStore{data: &tables{
		events:        map[string]domain.Event{},
		registrations: map[string]domain.Registration{},
		payments:      map[string]domain.Payment{},
		promos:        map[string]domain.PromoCode{},
	}}
}

func (t *tables) clone() *tables {
	c := &tables{
		events:        make(map[string]domain.Event, len(t.events)),
		registrations: make(map[string]domain.Registration, len(t.registrations)),
		payments:      make(map[string]domain.Payment, len(t.payments)),
		promos:        make(map[string]domain.PromoCode, len(t.promos)),
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.registrations {
		c.registrations[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.promos {
		c.promos[k] = v
	}
	return c
}

func (s *FakeStore) WithinTx(ctx context.Context, fn func(application.Store) error) error {
	if s.tx {
		return fn(s)
	}

	s.mu.Lock()
	s.owner.Store(goid())
	defer func() {
		s.owner.Store(0)
		s.mu.Unlock()
	}()

	scratch := s.data.clone()
	txStore := &FakeStore{data: scratch, tx: true}
	if err := fn(txStore); err != nil {
		return err
	}
	s.data = scratch
	return nil
}

func (s *FakeStore) lock() func() {
	if s.tx {
		return func() {}
	}
	// The goroutine running WithinTx already holds mu; a read through the
	// outer store from inside its own transaction sees committed data, the
	// way a second connection would against the SQL store.
	if s.owner.Load() == goid() {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n])) // "goroutine <id> [running]:"
	id, _ := strconv.ParseInt(fields[1], 10, 64)
	return id
}

// Seed helpers used by tests.

func (s *FakeStore) SeedEvent(ev domain.Event) {
	defer s.lock()()
	s.data.events[ev.ID] = ev
}

func (s *FakeStore) SeedRegistration(reg domain.Registration) {
	defer s.lock()()
	s.data.registrations[reg.ID] = reg
}

func (s *FakeStore) SeedPayment(p domain.Payment) {
	defer s.lock()()
	s.data.payments[p.ID] = p
}

func (s *FakeStore) SeedPromoCode(p domain.PromoCode) {
	defer s.lock()()
	s.data.promos[p.ID] = p
}

func (s *FakeStore) Events() application.EventRepository          { return fakeEvents{s} }
func (s *FakeStore) Registrations() application.RegistrationRepository {
	return fakeRegistrations{s}
}
func (s *FakeStore) Payments() application.PaymentRepository   { return fakePayments{s} }
func (s *FakeStore) PromoCodes() application.PromoCodeRepository { return fakePromos{s} }

type fakeEvents struct{ s *FakeStore }

func (r fakeEvents) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	defer r.s.lock()()
	ev, ok := r.s.data.events[id]
	if !ok {
		return nil, application.ErrEventNotFound
	}
	copied := ev
	return &copied, nil
}

func (r fakeEvents) ReserveSeat(ctx context.Context, eventID string, now time.Time) error {
	defer r.s.lock()()
	ev, ok := r.s.data.events[eventID]
	if !ok {
		return application.ErrEventNotFound
	}
	if !ev.Date.After(now) {
		return domain.ErrEventNotRegistrable
	}
	if ev.RegisteredCount >= ev.Capacity {
		return domain.ErrEventFull
	}
	ev.RegisteredCount++
	r.s.data.events[eventID] = ev
	return nil
}

func (r fakeEvents) ReleaseSeat(ctx context.Context, eventID string) error {
	defer r.s.lock()()
	ev, ok := r.s.data.events[eventID]
	if !ok {
		return application.ErrEventNotFound
	}
	if ev.RegisteredCount > 0 {
		ev.RegisteredCount--
	}
	r.s.data.events[eventID] = ev
	return nil
}

type fakeRegistrations struct{ s *FakeStore }

func (r fakeRegistrations) Create(ctx context.Context, reg *domain.Registration) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.registrations {
		if existing.EventID == reg.EventID &&
			strings.EqualFold(existing.Email, reg.Email) &&
			existing.Status != domain.RegistrationCancelled {
			return domain.ErrDuplicateRegistration
		}
	}
	r.s.data.registrations[reg.ID] = *reg
	return nil
}

func (r fakeRegistrations) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	defer r.s.lock()()
	reg, ok := r.s.data.registrations[id]
	if !ok {
		return nil, application.ErrRegistrationNotFound
	}
	copied := reg
	return &copied, nil
}

func (r fakeRegistrations) FindPendingByEmailAndEvent(ctx context.Context, email, eventID string) (*domain.Registration, error) {
	defer r.s.lock()()
	for _, reg := range r.s.data.registrations {
		if reg.EventID == eventID &&
			strings.EqualFold(reg.Email, email) &&
			reg.Status == domain.RegistrationPending {
			copied := reg
			return &copied, nil
		}
	}
	return nil, application.ErrRegistrationNotFound
}

func (r fakeRegistrations) Update(ctx context.Context, reg *domain.Registration) error {
	defer r.s.lock()()
	if _, ok := r.s.data.registrations[reg.ID]; !ok {
		return application.ErrRegistrationNotFound
	}
	r.s.data.registrations[reg.ID] = *reg
	return nil
}

type fakePayments struct{ s *FakeStore }

func (r fakePayments) Create(ctx context.Context, p *domain.Payment) error {
	defer r.s.lock()()
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r fakePayments) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	defer r.s.lock()()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, application.ErrPaymentNotFound
	}
	copied := p
	return &copied, nil
}

func (r fakePayments) FindByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	defer r.s.lock()()
	for _, p := range r.s.data.payments {
		if p.RegistrationID == registrationID {
			copied := p
			return &copied, nil
		}
	}
	return nil, application.ErrPaymentNotFound
}

func (r fakePayments) FindByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error) {
	defer r.s.lock()()
	for _, p := range r.s.data.payments {
		if p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			copied := p
			return &copied, nil
		}
	}
	return nil, application.ErrPaymentNotFound
}

func (r fakePayments) Update(ctx context.Context, p *domain.Payment) error {
	defer r.s.lock()()
	if _, ok := r.s.data.payments[p.ID]; !ok {
		return application.ErrPaymentNotFound
	}
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r fakePayments) Delete(ctx context.Context, id string) error {
	defer r.s.lock()()
	delete(r.s.data.payments, id)
	return nil
}

func (r fakePayments) FindStalePending(ctx context.Context, cutoff time.Time, withInvoice bool, limit int) ([]*domain.Payment, error) {
	defer r.s.lock()()
	var out []*domain.Payment
	for _, p := range r.s.data.payments {
		if p.Status != domain.StatusPending || !p.CreatedAt.Before(cutoff) {
			continue
		}
		if withInvoice != (p.InvoiceID != nil) {
			continue
		}
		copied := p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePromos struct{ s *FakeStore }

func (r fakePromos) FindByID(ctx context.Context, id string) (*domain.PromoCode, error) {
	defer r.s.lock()()
	p, ok := r.s.data.promos[id]
	if !ok {
		return nil, domain.ErrPromoNotFound
	}
	copied := p
	return &copied, nil
}

func (r fakePromos) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	defer r.s.lock()()
	for _, p := range r.s.data.promos {
		if p.Code == code {
			copied := p
			return &copied, nil
		}
	}
	return nil, domain.ErrPromoNotFound
}

func (r fakePromos) Redeem(ctx context.Context, id string) error {
	defer r.s.lock()()
	p, ok := r.s.data.promos[id]
	if !ok {
		return domain.ErrPromoNotFound
	}
	if p.UsedCount >= p.UsageLimit {
		return domain.ErrPromoExhausted
	}
	p.UsedCount++
	r.s.data.promos[id] = p
	return nil
}

func (r fakePromos) Reverse(ctx context.Context, id string) error {
	defer r.s.lock()()
	p, ok := r.s.data.promos[id]
	if !ok {
		return domain.ErrPromoNotFound
	}
	if p.UsedCount > 0 {
		p.UsedCount--
	}
	r.s.data.promos[id] = p
	return nil
}
