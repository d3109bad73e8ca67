// Package session hosts the per-user ordering session: the in-memory cart
// aggregate and order ledger, the command surface the UI layer calls, and the
// event loop that keeps the cart consistent with the document store's
// realtime snapshots.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/domain/catalog"
	"github.com/xenking/kitchen-storefront/internal/domain/order"
	"github.com/xenking/kitchen-storefront/internal/gateway"
)

// RetryPolicy bounds the write retry loop: Attempts total tries with
// exponential waits starting at InitialInterval.
type RetryPolicy struct {
	Attempts        int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy is the reference behaviour: three attempts, waits of
// 1s then 2s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:        3,
		InitialInterval: time.Second,
		Multiplier:      2,
	}
}

// AddRequest is the input of the add-to-cart command.
type AddRequest struct {
	ItemID    string
	Size      cart.Size
	Sweetness cart.Sweetness
	Additions []string
	Quantity  int
}

// Session owns one user's cart and order history. Commands and snapshot
// application serialize on a single mutex: every event runs to completion
// before the next is processed, matching the cooperative single-session
// model. The cart is a cache of the store's document; each remote snapshot
// replaces it wholesale.
type Session struct {
	userID  string
	catalog catalog.Repository
	store   gateway.Store
	pricing cart.Pricing
	retry   RetryPolicy
	lg      *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	cart   cart.Cart
	ledger *order.Ledger
	// mutated flips once any command changes the cart. It gates the
	// first-run bootstrap: an absent initial snapshot delivered after a
	// command must not wipe state whose write is already durable.
	mutated bool
}

// New creates a session for userID. Run must be started for remote snapshots
// to be applied; commands work independently of it.
func New(userID string, cat catalog.Repository, store gateway.Store, pricing cart.Pricing, retry RetryPolicy, lg *zap.Logger) *Session {
	return &Session{
		userID:  userID,
		catalog: cat,
		store:   store,
		pricing: pricing,
		retry:   retry,
		lg:      lg.With(zap.String("user_id", userID)),
		now:     time.Now,
		ledger:  order.NewLedger(),
	}
}

// Run subscribes to the user's cart document and applies snapshots until ctx
// is cancelled or the stream fails. A failed subscribe is fatal to the
// session, not to the process.
func (s *Session) Run(ctx context.Context) error {
	sub, err := s.store.Subscribe(ctx, gateway.CartKey(s.userID))
	if err != nil {
		return errors.Wrap(err, "subscribe cart")
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Snapshots():
			if !ok {
				if err := sub.Err(); err != nil {
					return errors.Wrap(err, "cart subscription")
				}
				return nil
			}
			s.applySnapshot(ctx, snap)
		}
	}
}

// applySnapshot replaces the local cart with the authoritative remote state.
// An absent document is the first-run case: an empty cart is established
// with a bootstrap write. A document that cannot be decoded is logged and
// treated the same as an absent one.
func (s *Session) applySnapshot(ctx context.Context, snap gateway.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !snap.Exists {
		s.bootstrapLocked(ctx)
		return
	}

	items, updatedAt, err := gateway.DecodeCart(snap.Data)
	if err != nil {
		s.lg.Warn("malformed cart snapshot, treating as absent", zap.Error(err))
		s.bootstrapLocked(ctx)
		return
	}
	s.cart.Replace(items, updatedAt)
}

// bootstrapLocked establishes the empty first-run cart with a write. A
// session that has already run a command holds newer state than an absent or
// undecodable snapshot: nothing deletes cart documents, so such a snapshot
// predates the command's own write and is skipped instead of applied.
func (s *Session) bootstrapLocked(ctx context.Context) {
	if s.mutated {
		return
	}
	s.cart.Replace(nil, s.now())
	if err := s.persistCartLocked(ctx); err != nil {
		s.lg.Warn("cart bootstrap write failed", zap.Error(err))
	}
}

// AddToCart validates the request, prices the line, merges it into the cart,
// and persists. Returns the resulting line item on success.
func (s *Session) AddToCart(ctx context.Context, req AddRequest) (*cart.LineItem, error) {
	if req.Quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if !cart.ValidSize(req.Size) {
		return nil, &ValidationError{Field: "size", Reason: "unknown size"}
	}
	if !cart.ValidSweetness(req.Sweetness) {
		return nil, &ValidationError{Field: "sweetness", Reason: "unknown sweetness level"}
	}

	item, err := s.catalog.GetByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ValidationError{Field: "itemId", Reason: "unknown menu item"}
		}
		return nil, errors.Wrap(err, "get menu item")
	}

	additions, err := s.resolveAdditions(ctx, req.Additions)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(additions))
	for i, a := range additions {
		names[i] = a.Name
	}
	line := cart.LineItem{
		LineID:    uuid.New().String(),
		ItemID:    item.ID,
		Name:      item.Name,
		BasePrice: item.BasePrice,
		UnitPrice: cart.UnitPrice(item.BasePrice, req.Size, additions),
		Quantity:  req.Quantity,
		Size:      req.Size,
		Sweetness: req.Sweetness,
		Additions: cart.NormalizeAdditions(names),
		Icon:      item.Icon,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Add(line, s.now())
	s.mutated = true
	if err := s.persistCartLocked(ctx); err != nil {
		return nil, err
	}
	return &line, nil
}

// resolveAdditions maps addition names to their priced catalog entries.
func (s *Session) resolveAdditions(ctx context.Context, names []string) ([]catalog.Addition, error) {
	if len(names) == 0 {
		return nil, nil
	}
	known, err := s.catalog.Additions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list additions")
	}
	byName := make(map[string]catalog.Addition, len(known))
	for _, a := range known {
		byName[a.Name] = a
	}

	out := make([]catalog.Addition, 0, len(names))
	for _, name := range cart.NormalizeAdditions(append([]string(nil), names...)) {
		a, ok := byName[name]
		if !ok {
			return nil, &ValidationError{Field: "additions", Reason: "unknown addition " + name}
		}
		out = append(out, a)
	}
	return out, nil
}

// UpdateQuantity adjusts a line's quantity by delta. Dropping to zero or
// below removes the line; an unknown line id is a no-op.
func (s *Session) UpdateQuantity(ctx context.Context, lineID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.cart.Quantity(lineID)
	if current == 0 {
		return nil
	}
	s.cart.SetQuantity(lineID, current+delta, s.now())
	s.mutated = true
	return s.persistCartLocked(ctx)
}

// RemoveItem deletes a line from the cart; unknown ids are a no-op.
func (s *Session) RemoveItem(ctx context.Context, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(lineID, s.now())
	s.mutated = true
	return s.persistCartLocked(ctx)
}

// ClearCart empties the cart.
func (s *Session) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear(s.now())
	s.mutated = true
	return s.persistCartLocked(ctx)
}

// Checkout snapshots the cart into a finalized order, writes the order
// document, appends it to the ledger, then clears and persists the cart.
//
// When the order itself is durable but the follow-up write of the emptied
// cart fails, the order is returned together with a PersistenceError: the
// purchase stands, the stale remote cart is the accepted inconsistency
// window until the next successful write.
func (s *Session) Checkout(ctx context.Context) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := order.New(s.cart.Snapshot(), s.cart.Totals(s.pricing), s.now())
	if err != nil {
		return nil, err
	}

	if err := s.writeWithRetry(ctx, gateway.OrderKey(s.userID, o.OrderID), gateway.EncodeOrder(o)); err != nil {
		return nil, err
	}
	s.ledger.Append(*o)

	s.cart.Clear(s.now())
	s.mutated = true
	if err := s.persistCartLocked(ctx); err != nil {
		return o, err
	}
	return o, nil
}

// LoadHistory hydrates the ledger from the store's history documents and
// returns all orders, most recent first. Malformed documents are logged and
// skipped. The read is restartable: it reflects the ledger's contents at
// call time.
func (s *Session) LoadHistory(ctx context.Context) ([]order.Order, error) {
	docs, err := s.store.List(ctx, gateway.HistoryPrefix(s.userID))
	if err != nil {
		return nil, &PersistenceError{Key: gateway.HistoryPrefix(s.userID), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		o, err := gateway.DecodeOrder(doc)
		if err != nil {
			s.lg.Warn("malformed order document skipped", zap.Error(err))
			continue
		}
		s.ledger.Append(*o)
	}
	return s.ledger.Sorted(), nil
}

// CartView returns a copy of the current items and their derived totals.
func (s *Session) CartView() ([]cart.LineItem, cart.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot(), s.cart.Totals(s.pricing)
}

// persistCartLocked serializes the cart and writes it with bounded retries.
// Called with s.mu held; on failure the mutated cart is kept as-is.
func (s *Session) persistCartLocked(ctx context.Context) error {
	data := gateway.EncodeCart(s.cart.Snapshot(), s.cart.UpdatedAt)
	return s.writeWithRetry(ctx, gateway.CartKey(s.userID), data)
}

// writeWithRetry performs a gateway write with exponential backoff. An
// in-flight write runs to completion or exhausts its attempts; it is not
// cancelled mid-retry.
func (s *Session) writeWithRetry(ctx context.Context, key string, data []byte) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.InitialInterval
	bo.Multiplier = s.retry.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempts := uint64(0)
	if s.retry.Attempts > 1 {
		attempts = uint64(s.retry.Attempts - 1)
	}

	err := backoff.Retry(func() error {
		return s.store.Write(ctx, key, data)
	}, backoff.WithMaxRetries(bo, attempts))
	if err != nil {
		s.lg.Error("write exhausted retries",
			zap.String("key", key),
			zap.Int("attempts", s.retry.Attempts),
			zap.Error(err),
		)
		return &PersistenceError{Key: key, Err: err}
	}
	return nil
}
