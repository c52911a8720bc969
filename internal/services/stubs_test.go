package services

import (
	"context"
	"sync"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/payments"
	"github.com/voltmart/storefront/internal/repositories"
)

type stubProductRepository struct {
	products     map[string]domain.Product
	findCalls    int
	findFunc     func(ctx context.Context, ids []string) (map[string]domain.Product, error)
	getFunc      func(ctx context.Context, id string) (domain.Product, error)
	queryFunc    func(ctx context.Context, query domain.ProductQuery) (domain.ProductPage, error)
	listFunc     func(ctx context.Context) ([]domain.Product, error)
	countFunc    func(ctx context.Context) (int, error)
	insertFunc   func(ctx context.Context, product domain.Product) (domain.Product, error)
	updateFunc   func(ctx context.Context, product domain.Product) (domain.Product, error)
	deleteFunc   func(ctx context.Context, id string) error
	pingFunc     func(ctx context.Context) error
	insertedRows []domain.Product
}

func newStubProducts(products ...domain.Product) *stubProductRepository {
	repo := &stubProductRepository{products: make(map[string]domain.Product, len(products))}
	for _, product := range products {
		repo.products[product.ID] = product
	}
	return repo
}

func (s *stubProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	s.findCalls++
	if s.findFunc != nil {
		return s.findFunc(ctx, ids)
	}
	found := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			found[id] = product
		}
	}
	return found, nil
}

func (s *stubProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, id)
	}
	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, repositories.NewStoreError("stub.get", repositories.StoreErrorNotFound, nil)
	}
	return product, nil
}

func (s *stubProductRepository) Query(ctx context.Context, query domain.ProductQuery) (domain.ProductPage, error) {
	if s.queryFunc != nil {
		return s.queryFunc(ctx, query)
	}
	products := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, product)
	}
	return repositories.EvaluateProductQuery(products, query), nil
}

func (s *stubProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	products := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, product)
	}
	repositories.SortProducts(products, domain.ProductSortNewest)
	return products, nil
}

func (s *stubProductRepository) Count(ctx context.Context) (int, error) {
	if s.countFunc != nil {
		return s.countFunc(ctx)
	}
	return len(s.products), nil
}

func (s *stubProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, product)
	}
	if _, ok := s.products[product.ID]; ok {
		return domain.Product{}, repositories.NewStoreError("stub.insert", repositories.StoreErrorConflict, nil)
	}
	s.products[product.ID] = product
	s.insertedRows = append(s.insertedRows, product)
	return product, nil
}

func (s *stubProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, product)
	}
	if _, ok := s.products[product.ID]; !ok {
		return domain.Product{}, repositories.NewStoreError("stub.update", repositories.StoreErrorNotFound, nil)
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubProductRepository) Delete(ctx context.Context, id string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, id)
	}
	if _, ok := s.products[id]; !ok {
		return repositories.NewStoreError("stub.delete", repositories.StoreErrorNotFound, nil)
	}
	delete(s.products, id)
	return nil
}

func (s *stubProductRepository) Ping(ctx context.Context) error {
	if s.pingFunc != nil {
		return s.pingFunc(ctx)
	}
	return nil
}

// memoryOrderRepository enforces the same uniqueness rules as the real stores.
type memoryOrderRepository struct {
	mu          sync.Mutex
	byIntent    map[string]domain.Order
	numbers     map[string]struct{}
	createCalls int
	findCalls   int
	createFunc  func(ctx context.Context, order domain.Order) (domain.Order, error)
	findErr     error
}

func newMemoryOrders() *memoryOrderRepository {
	return &memoryOrderRepository{
		byIntent: map[string]domain.Order{},
		numbers:  map[string]struct{}{},
	}
}

func (m *memoryOrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	m.mu.Lock()
	m.createCalls++
	hook := m.createFunc
	m.mu.Unlock()
	if hook != nil {
		return hook(ctx, order)
	}
	return m.insert(order)
}

func (m *memoryOrderRepository) insert(order domain.Order) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byIntent[order.PaymentIntentID]; ok {
		return domain.Order{}, repositories.NewStoreError("memory.orders.create", repositories.StoreErrorConflict, nil)
	}
	if _, ok := m.numbers[order.OrderNumber]; ok {
		return domain.Order{}, repositories.ErrOrderNumberTaken
	}
	m.byIntent[order.PaymentIntentID] = order
	m.numbers[order.OrderNumber] = struct{}{}
	return order, nil
}

func (m *memoryOrderRepository) FindByPaymentIntent(_ context.Context, intentID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return domain.Order{}, m.findErr
	}
	order, ok := m.byIntent[intentID]
	if !ok {
		return domain.Order{}, repositories.NewStoreError("memory.orders.find", repositories.StoreErrorNotFound, nil)
	}
	return order, nil
}

func (m *memoryOrderRepository) OrderNumberExists(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.numbers[number]
	return ok, nil
}

func (m *memoryOrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []domain.Order
	for _, order := range m.byIntent {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *memoryOrderRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byIntent)
}

type stubGateway struct {
	createFunc  func(ctx context.Context, req payments.IntentRequest) (payments.Intent, error)
	lookupFunc  func(ctx context.Context, intentID string) (payments.PaymentDetails, error)
	lookupCalls int
}

func (s *stubGateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	return s.createFunc(ctx, req)
}

func (s *stubGateway) LookupPayment(ctx context.Context, intentID string) (payments.PaymentDetails, error) {
	s.lookupCalls++
	return s.lookupFunc(ctx, intentID)
}

func settledGateway(amountReceived domain.Money) *stubGateway {
	return &stubGateway{lookupFunc: func(_ context.Context, intentID string) (payments.PaymentDetails, error) {
		return payments.PaymentDetails{
			IntentID:       intentID,
			Status:         payments.StatusSucceeded,
			Amount:         amountReceived,
			AmountReceived: amountReceived,
			Currency:       "usd",
		}, nil
	}}
}

type stubPublisher struct {
	published []domain.Order
	err       error
}

func (s *stubPublisher) PublishOrderPaid(_ context.Context, order domain.Order) error {
	s.published = append(s.published, order)
	return s.err
}

type recordedEvent struct {
	event  string
	fields map[string]any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) log(_ context.Context, event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, fields: fields})
}

func (r *eventRecorder) find(event string) (recordedEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.event == event {
			return e, true
		}
	}
	return recordedEvent{}, false
}

func sequenceNumbers(numbers ...string) OrderNumberFunc {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		number := numbers[i%len(numbers)]
		i++
		return number
	}
}

type cartResolverFunc func(ctx context.Context, lines []CartLine) (ResolvedCart, error)

func (f cartResolverFunc) ResolveCart(ctx context.Context, lines []CartLine) (ResolvedCart, error) {
	return f(ctx, lines)
}
