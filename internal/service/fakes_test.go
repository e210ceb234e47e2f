package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"garagepro/internal/billing"
	"garagepro/internal/config"
	"garagepro/internal/email"
	"garagepro/internal/model"

	"github.com/rs/zerolog"
)

var errBoom = errors.New("boom")

type fakeGarageRepo struct {
	mu      sync.Mutex
	garages map[string]*model.Garage
}

func newFakeGarageRepo(garages ...*model.Garage) *fakeGarageRepo {
	r := &fakeGarageRepo{garages: map[string]*model.Garage{}}
	for _, g := range garages {
		r.garages[g.UserID] = g
	}
	return r
}

func (r *fakeGarageRepo) GetGarageByUserID(_ context.Context, userID string) (*model.Garage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.garages[userID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGarageRepo) GetGarageByStripeCustomerID(_ context.Context, customerID string) (*model.Garage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.garages {
		if g.CustomerID() == customerID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeGarageRepo) UpdateStripeCustomerID(_ context.Context, userID, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.garages[userID]
	if !ok {
		return fmt.Errorf("garage %s not found", userID)
	}
	g.StripeCustomerID = &customerID
	return nil
}

func (r *fakeGarageRepo) UpdatePlan(_ context.Context, userID, plan string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.garages[userID]
	if !ok {
		return false, nil
	}
	g.Plan = plan
	return true, nil
}

func (r *fakeGarageRepo) plan(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.garages[userID].Plan
}

type subKey struct{ userID, subID string }

// fakeSubRepo mirrors the upsert semantics of the Postgres repository:
// created_at survives overwrites and each key maps to one record.
type fakeSubRepo struct {
	mu      sync.Mutex
	subs    map[subKey]*model.Subscription
	upserts int
	err     error
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: map[subKey]*model.Subscription{}}
}

func (r *fakeSubRepo) seed(sub model.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[subKey{sub.UserID, sub.BillingSubscriptionID}] = &sub
}

func (r *fakeSubRepo) UpsertSubscription(_ context.Context, sub *model.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	r.upserts++
	key := subKey{sub.UserID, sub.BillingSubscriptionID}
	stored := *sub
	existing, ok := r.subs[key]
	if ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = sub.UpdatedAt
	}
	r.subs[key] = &stored
	sub.CreatedAt = stored.CreatedAt
	return !ok, nil
}

func (r *fakeSubRepo) GetSubscription(_ context.Context, userID, subID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subKey{userID, subID}]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubRepo) GetSubscriptionByBillingID(_ context.Context, subID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.subs {
		if k.subID == subID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSubRepo) newest(userID string, keep func(*model.Subscription) bool) *model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []*model.Subscription
	for k, s := range r.subs {
		if k.userID == userID && keep(s) {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].UpdatedAt.After(matches[j].UpdatedAt) })
	cp := *matches[0]
	return &cp
}

func (r *fakeSubRepo) GetEntitledSubscription(_ context.Context, userID string) (*model.Subscription, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.newest(userID, func(s *model.Subscription) bool { return s.Status.Entitling() }), nil
}

func (r *fakeSubRepo) GetLatestSubscription(_ context.Context, userID string) (*model.Subscription, error) {
	return r.newest(userID, func(*model.Subscription) bool { return true }), nil
}

func (r *fakeSubRepo) UpdateStatus(_ context.Context, userID, subID string, status model.SubscriptionStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	s, ok := r.subs[subKey{userID, subID}]
	if !ok {
		return false, nil
	}
	s.Status = status
	s.UpdatedAt = at
	return true, nil
}

func (r *fakeSubRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *fakeSubRepo) get(userID, subID string) *model.Subscription {
	s, _ := r.GetSubscription(context.Background(), userID, subID)
	return s
}

type fakeInvoiceRepo struct {
	mu         sync.Mutex
	invoices   map[string]*model.Invoice
	byProvider map[string]string
	seq        int64
	createErr  error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: map[string]*model.Invoice{}, byProvider: map[string]string{}}
}

func (r *fakeInvoiceRepo) NextInvoiceSequence(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *fakeInvoiceRepo) CreateInvoice(_ context.Context, inv *model.Invoice) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	if _, ok := r.byProvider[inv.ProviderInvoiceID]; ok {
		return false, nil
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	r.byProvider[inv.ProviderInvoiceID] = inv.ID
	return true, nil
}

func (r *fakeInvoiceRepo) GetInvoice(_ context.Context, id string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) GetInvoiceByProviderID(ctx context.Context, providerInvoiceID string) (*model.Invoice, error) {
	r.mu.Lock()
	id, ok := r.byProvider[providerInvoiceID]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetInvoice(ctx, id)
}

func (r *fakeInvoiceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.invoices)
}

type fakeProvider struct {
	mu            sync.Mutex
	sessions      map[string]*billing.CheckoutSession
	subscriptions map[string]*billing.SubscriptionSnapshot
	customers     []billing.Customer
	createdEmails []string
	checkouts     []billing.CheckoutParams
	portalFor     string
	event         *billing.Event
	constructErr  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions:      map[string]*billing.CheckoutSession{},
		subscriptions: map[string]*billing.SubscriptionSnapshot{},
	}
}

func (p *fakeProvider) RetrieveCheckoutSession(_ context.Context, id string) (*billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("retrieve checkout session: %w", billing.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) RetrieveSubscription(_ context.Context, id string) (*billing.SubscriptionSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("retrieve subscription: %w", billing.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) ListCustomers(_ context.Context, email string) ([]billing.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []billing.Customer
	for _, c := range p.customers {
		if c.Email == email {
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *fakeProvider) CreateCustomer(_ context.Context, email string, metadata map[string]string) (*billing.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createdEmails = append(p.createdEmails, email)
	c := billing.Customer{ID: fmt.Sprintf("cus_new_%d", len(p.createdEmails)), Email: email, Metadata: metadata}
	p.customers = append(p.customers, c)
	return &c, nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts = append(p.checkouts, params)
	return &billing.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.test/cs_new"}, nil
}

func (p *fakeProvider) CreateBillingPortalSession(_ context.Context, customerID, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.portalFor = customerID
	return "https://billing.stripe.test/p/" + customerID, nil
}

func (p *fakeProvider) ConstructEvent(_ []byte, _ string) (*billing.Event, error) {
	if p.constructErr != nil {
		return nil, p.constructErr
	}
	return p.event, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg email.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("msg_%d", len(s.sent)), nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchive) PutInvoice(_ context.Context, userID, invoiceNumber, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	key := userID + "/" + invoiceNumber + ".html"
	a.keys = append(a.keys, key)
	return key, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.BillingEvent
	err    error
}

func (p *fakePublisher) PublishBillingEvent(_ context.Context, evt model.BillingEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, evt)
	return fmt.Sprintf("evt_%d", len(p.events)), nil
}

func (p *fakePublisher) types() []model.BillingEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.BillingEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		PaidPlan:              "premium",
		PlanPriceHT:           59.99,
		VATRate:               20,
		Currency:              "EUR",
		SellerName:            "GaragePro",
		SellerAddress:         "1 rue de la Paix, Paris",
		PublicBaseURL:         "https://app.garagepro.test",
		EmailFrom:             "factures@garagepro.test",
		StripePriceID:         "price_default",
		StripeSuccessURL:      "https://app.garagepro.test/billing/success",
		StripeCancelURL:       "https://app.garagepro.test/billing",
		StripePortalReturnURL: "https://app.garagepro.test/settings",
	}
}

type harness struct {
	cfg       *config.Config
	garages   *fakeGarageRepo
	subs      *fakeSubRepo
	invoices  *fakeInvoiceRepo
	provider  *fakeProvider
	sender    *fakeSender
	archive   *fakeArchive
	publisher *fakePublisher
	invoice   *invoiceService
	stripe    *StripeService
}

func newHarness(garages ...*model.Garage) *harness {
	h := &harness{
		cfg:       testConfig(),
		garages:   newFakeGarageRepo(garages...),
		subs:      newFakeSubRepo(),
		invoices:  newFakeInvoiceRepo(),
		provider:  newFakeProvider(),
		sender:    &fakeSender{},
		archive:   &fakeArchive{},
		publisher: &fakePublisher{},
	}
	h.invoice = NewInvoiceService(h.cfg, h.invoices, h.garages, h.sender, h.archive, h.publisher, zerolog.Nop()).(*invoiceService)
	h.invoice.now = func() time.Time { return fixedNow }
	h.stripe = NewStripeService(h.cfg, h.provider, h.garages, h.subs, h.invoice, h.publisher, zerolog.Nop())
	h.stripe.now = func() time.Time { return fixedNow }
	return h
}

func garage(userID, customerID string) *model.Garage {
	g := &model.Garage{UserID: userID, Name: "Garage " + userID, Email: userID + "@garage.test", Plan: model.PlanFree}
	if customerID != "" {
		g.StripeCustomerID = &customerID
	}
	return g
}

func activeSnapshot(subID, customerID string) *billing.SubscriptionSnapshot {
	return &billing.SubscriptionSnapshot{
		ID:                 subID,
		CustomerID:         customerID,
		PriceID:            "price_pro",
		Status:             "active",
		CurrentPeriodStart: time.Unix(1741910400, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(1744588800, 0).UTC(),
	}
}
