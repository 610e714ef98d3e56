package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-preorder/internal/analytics"
	"ms-preorder/internal/catalog"
	"ms-preorder/internal/config"
	"ms-preorder/internal/logger"
	"ms-preorder/internal/metrics"
	"ms-preorder/internal/models"
	"ms-preorder/internal/money"
	"ms-preorder/internal/order/db"
	"ms-preorder/internal/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
)

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (*models.CreateOrderResponse, bool, error)
	Complete(ctx context.Context, key string, resp *models.CreateOrderResponse) error
	Release(ctx context.Context, key string) error
}

type KafkaPublisher interface {
	PublishOrderCreated(ctx context.Context, event models.OrderEvent) error
	PublishOrderStatusChanged(ctx context.Context, event models.OrderEvent) error
}

type OrderService struct {
	DB          *db.DB
	Catalog     catalog.Lookup
	Analytics   *analytics.Service
	Idempotency IdempotencyStore
	Kafka       KafkaPublisher
	Metrics     *metrics.Registry
	Logger      *logger.Logger
	Clock       utils.Clock
	Location    *time.Location
	cfg         config.EngineConfig
}

// NewOrderService wires the engine. Idempotency, Kafka and Metrics are
// optional and may be set on the returned value.
func NewOrderService(database *db.DB, lookup catalog.Lookup, cfg config.EngineConfig, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:        database,
		Catalog:   lookup,
		Analytics: analytics.NewService(database.Bun),
		Logger:    log,
		Clock:     utils.SystemClock{},
		Location:  utils.LoadLocation(cfg.Timezone),
		cfg:       cfg,
	}
}

// Today is the current business day.
func (s *OrderService) Today() string {
	return utils.BusinessDay(s.Clock.Now(), s.Location)
}

// ---------------- CREATE ----------------

func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	start := time.Now()

	lines, err := normalizeLines(req.Items)
	if err != nil {
		s.Metrics.ObserveRejected(rejectReason(err))
		return nil, err
	}

	idemKey := ""
	if req.IdempotencyKey != "" && s.Idempotency != nil {
		idemKey = req.UserID + ":" + req.IdempotencyKey
		prev, reserved, err := s.Idempotency.Reserve(ctx, idemKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		if prev != nil {
			s.Metrics.ObserveReplay()
			s.Logger.LogOrder("REPLAY", prev.OrderID, "idempotency key reused, returning first result")
			return prev, nil
		}
		if !reserved {
			return nil, ErrDuplicateRequest
		}
	}

	paymentMode := req.PaymentMode
	if paymentMode == "" {
		paymentMode = s.cfg.DefaultPayment
	}

	now := s.Clock.Now()
	day := utils.BusinessDay(now, s.Location)

	var created *models.Order
	err = s.retry(ctx, "create", func() error {
		o, err := s.createOnce(ctx, req.UserID, lines, paymentMode, req.PickupTime, day, now)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		if idemKey != "" {
			if rerr := s.Idempotency.Release(ctx, idemKey); rerr != nil {
				s.Logger.Warn("REDIS", fmt.Sprintf("Failed to release idempotency key: %v", rerr))
			}
		}
		s.Metrics.ObserveRejected(rejectReason(err))
		s.Logger.Warn("ORDER", fmt.Sprintf("Create order for user %s failed: %v", req.UserID, err))
		return nil, err
	}

	resp := &models.CreateOrderResponse{OrderID: created.ID, OrderNo: created.OrderNo, Amount: created.Amount}

	if idemKey != "" {
		if err := s.Idempotency.Complete(ctx, idemKey, resp); err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("Failed to store idempotency result: %v", err))
		}
	}

	s.Metrics.ObserveCreated(time.Since(start).Seconds())
	s.Logger.LogOrder("CREATE", created.ID, fmt.Sprintf("day=%s no=%d amount=%s items=%d", day, created.OrderNo, created.Amount, len(lines)))

	if s.Kafka != nil {
		event := models.NewOrderEvent(models.EventOrderCreated, *created, now)
		event.ChangedBy = req.UserID
		if err := s.Kafka.PublishOrderCreated(ctx, event); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (order created): %v", err))
		}
	}

	return resp, nil
}

// createOnce is one attempt of the creation transaction.
func (s *OrderService) createOnce(ctx context.Context, userID string, lines []models.OrderLine, paymentMode string, pickup *time.Time, day string, now time.Time) (*models.Order, error) {
	var created *models.Order

	err := s.DB.InTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ItemID
		}

		prices, err := s.Catalog.ResolvePrices(ctx, tx, ids)
		if err != nil {
			var unknown *catalog.UnknownItemError
			if errors.As(err, &unknown) {
				return &InvalidItemsError{Unknown: unknown.ItemIDs}
			}
			return classify(err)
		}

		var unavailable []int64
		priced := make([]money.Line, 0, len(lines))
		items := make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			entry := prices[l.ItemID]
			if s.cfg.RejectUnavailable && !entry.Available {
				unavailable = append(unavailable, l.ItemID)
				continue
			}
			priced = append(priced, money.Line{UnitPrice: entry.UnitPrice, Quantity: l.Quantity})
			items = append(items, models.OrderItem{
				ItemID:    l.ItemID,
				Name:      entry.Name,
				Quantity:  l.Quantity,
				UnitPrice: entry.UnitPrice,
			})
		}
		if len(unavailable) > 0 {
			return &InvalidItemsError{Unavailable: unavailable}
		}

		amount, err := money.Total(priced)
		if err != nil {
			return &InvalidItemsError{BadQuantity: ids}
		}

		// numbering is the last step before the insert so the counter row
		// is held for as short a time as possible
		orderNo, err := s.DB.NextOrderNumber(ctx, tx, day)
		if err != nil {
			return classify(err)
		}

		order := &models.Order{
			ID:          utils.NewOrderID(),
			Day:         day,
			OrderNo:     orderNo,
			UserID:      userID,
			Amount:      amount,
			PaymentMode: paymentMode,
			PickupTime:  pickup,
			Status:      models.StatusPreparing,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for i := range items {
			items[i].OrderID = order.ID
		}

		if err := s.DB.InsertOrder(ctx, tx, order, items); err != nil {
			return classify(err)
		}
		err = s.DB.InsertStatusLog(ctx, tx, &models.OrderStatusLog{
			OrderID:   order.ID,
			ToStatus:  order.Status,
			ChangedBy: userID,
			ChangedAt: now,
		})
		if err != nil {
			return classify(err)
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return created, nil
}

// MaxItemQuantity caps the quantity of one item in an order, after merging.
const MaxItemQuantity = 1000

// normalizeLines validates quantities and merges repeated item ids, keeping
// the first-seen order.
func normalizeLines(in []models.OrderLine) ([]models.OrderLine, error) {
	if len(in) == 0 {
		return nil, ErrEmptyOrder
	}

	var bad []int64
	index := make(map[int64]int, len(in))
	out := make([]models.OrderLine, 0, len(in))
	for _, l := range in {
		if l.Quantity <= 0 || l.Quantity > MaxItemQuantity {
			bad = append(bad, l.ItemID)
			continue
		}
		if i, ok := index[l.ItemID]; ok {
			if out[i].Quantity > MaxItemQuantity-l.Quantity {
				bad = append(bad, l.ItemID)
				continue
			}
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ItemID] = len(out)
		out = append(out, l)
	}
	if len(bad) > 0 {
		return nil, &InvalidItemsError{BadQuantity: bad}
	}
	return out, nil
}

// ---------------- READ ----------------

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.OrderWithItems, error) {
	var result *models.OrderWithItems

	err := s.DB.InTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.GetOrderByID(ctx, tx, id)
		if err != nil {
			return err
		}
		items, err := s.DB.GetOrderItems(ctx, tx, id)
		if err != nil {
			return err
		}
		history, err := s.DB.GetStatusHistory(ctx, tx, id)
		if err != nil {
			return err
		}
		result = &models.OrderWithItems{
			Order:         *order,
			QueuePosition: analytics.QueuePosition(*order),
			Items:         items,
			History:       history,
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// ListOrders returns the day's orders in queue order with the day's revenue,
// both read in one transaction. An empty day means today.
func (s *OrderService) ListOrders(ctx context.Context, day string) (*models.DayOrders, error) {
	if day == "" {
		day = s.Today()
	} else {
		parsed, err := utils.ParseDay(day)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDay, err)
		}
		day = parsed
	}

	result := &models.DayOrders{Date: day}
	err := s.DB.InTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders, err := s.DB.ListOrdersByDay(ctx, tx, day)
		if err != nil {
			return err
		}
		revenue, err := s.Analytics.DailyRevenue(ctx, tx, day)
		if err != nil {
			return err
		}
		result.Orders = orders
		result.TotalRevenue = revenue
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.DB.ListOrdersByUser(ctx, s.DB.Bun, userID)
	if err != nil {
		return nil, classify(err)
	}
	return orders, nil
}

// ---------------- TRANSITIONS ----------------

// AdvanceStatus is the staff action. A target of cancelled is a staff cancel.
func (s *OrderService) AdvanceStatus(ctx context.Context, id string, newStatus models.OrderStatus, changedBy string) error {
	return s.transition(ctx, id, newStatus, advanceSources(newStatus), changedBy, transitionError)
}

// CancelOrder is the customer action.
func (s *OrderService) CancelOrder(ctx context.Context, id string, changedBy string) error {
	reject := func(from, _ models.OrderStatus) error { return cancelError(from) }
	return s.transition(ctx, id, models.StatusCancelled, cancellableFrom, changedBy, reject)
}

func (s *OrderService) transition(ctx context.Context, id string, to models.OrderStatus, sources []models.OrderStatus, changedBy string, reject func(from, to models.OrderStatus) error) error {
	var updated *models.Order
	var from models.OrderStatus

	err := s.retry(ctx, "transition", func() error {
		return classify(s.DB.InTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			current, err := s.DB.GetOrderStatus(ctx, tx, id)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return reject(current, to)
			}

			now := s.Clock.Now()
			n, err := s.DB.UpdateStatusGuard(ctx, tx, id, sources, to, now)
			if err != nil {
				return err
			}
			if n == 0 {
				// lost to a concurrent writer or never allowed; report what is there now
				latest, err := s.DB.GetOrderStatus(ctx, tx, id)
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				if err != nil {
					return err
				}
				return reject(latest, to)
			}

			err = s.DB.InsertStatusLog(ctx, tx, &models.OrderStatusLog{
				OrderID:    id,
				FromStatus: current,
				ToStatus:   to,
				ChangedBy:  changedBy,
				ChangedAt:  now,
			})
			if err != nil {
				return err
			}

			from = current
			updated, err = s.DB.GetOrderByID(ctx, tx, id)
			return err
		}))
	})
	if err != nil {
		return err
	}

	s.Metrics.ObserveTransition(string(to))
	s.Logger.LogOrder("STATUS", id, fmt.Sprintf("%s -> %s by %s", from, to, changedBy))

	if s.Kafka != nil {
		event := models.NewOrderEvent(models.EventOrderStatusChanged, *updated, updated.UpdatedAt)
		event.FromStatus = from
		event.ChangedBy = changedBy
		if err := s.Kafka.PublishOrderStatusChanged(ctx, event); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (status changed): %v", err))
		}
	}
	return nil
}

// ---------------- RETRY ----------------

// retry runs op until it succeeds, fails with a non-retryable error, or the
// configured number of retries is spent.
func (s *OrderService) retry(ctx context.Context, what string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	if s.cfg.RetryBackoff > 0 {
		policy.InitialInterval = s.cfg.RetryBackoff
	}
	policy.MaxElapsedTime = 0

	maxRetries := s.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		s.Metrics.ObserveRetry()
		s.Logger.Warn("ORDER", fmt.Sprintf("Retrying %s in %s: %v", what, wait, err))
	})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, ErrInvalidItems):
		return "invalid_items"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, ErrSequencingConflict):
		return "sequencing_conflict"
	default:
		return "storage_failure"
	}
}
