package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/cart"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/obs"
)

// TypeCartClear releases the cart quantities captured by an order whose
// in-request clear failed.
const TypeCartClear = "cart:clear"

// DefaultQueue is the asynq queue cart maintenance tasks run on.
const DefaultQueue = "default"

// CartClearPayload names the rows and the quantities the order consumed.
// Units added to those rows after the order are not part of it.
type CartClearPayload struct {
	OwnerID string       `json:"owner_id"`
	Lines   []cart.Claim `json:"lines"`
}

// NewCartClearTask builds the asynq task for the payload.
func NewCartClearTask(ownerID string, lines []cart.Claim) (*asynq.Task, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.New("tasks: owner id is required")
	}
	if len(lines) == 0 {
		return nil, errors.New("tasks: no lines to clear")
	}
	for _, l := range lines {
		if l.ID == "" || l.Quantity <= 0 {
			return nil, fmt.Errorf("tasks: invalid line %q x%d", l.ID, l.Quantity)
		}
	}
	data, err := json.Marshal(CartClearPayload{OwnerID: ownerID, Lines: lines})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCartClear, data), nil
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules cart clear retries.
type Enqueuer struct {
	Client   taskClient
	MaxRetry int
	Queue    string
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client, maxRetry int) Enqueuer {
	return Enqueuer{Client: client, MaxRetry: maxRetry, Queue: DefaultQueue}
}

// EnqueueCartClear schedules the release of lines for ownerID.
func (e Enqueuer) EnqueueCartClear(ctx context.Context, ownerID string, lines []cart.Claim) error {
	if e.Client == nil {
		return errors.New("tasks: client not configured")
	}
	task, err := NewCartClearTask(ownerID, lines)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(e.queue())}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeCartClear, err)
	}
	return nil
}

func (e Enqueuer) queue() string {
	if e.Queue == "" {
		return DefaultQueue
	}
	return e.Queue
}

// LineReleaser takes claimed quantities off an owner's cart rows, deleting
// the rows that run out.
type LineReleaser interface {
	ReleaseClaims(ctx context.Context, ownerID string, claims []cart.Claim) (deleted, reduced int64, err error)
}

// CartClearHandler processes TypeCartClear tasks.
type CartClearHandler struct {
	Repo   LineReleaser
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler. A malformed payload is dropped
// without retry; a release failure is returned so asynq retries it.
func (h *CartClearHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CartClearPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeCartClear, err, asynq.SkipRetry)
	}
	if p.OwnerID == "" || len(p.Lines) == 0 {
		return fmt.Errorf("empty %s payload: %w", TypeCartClear, asynq.SkipRetry)
	}
	deleted, reduced, err := h.Repo.ReleaseClaims(ctx, p.OwnerID, p.Lines)
	obs.ObserveCartClearRetry(err)
	if err != nil {
		h.Logger.Warn().Err(err).Str("owner", p.OwnerID).Msg("cart clear retry failed")
		return err
	}
	h.Logger.Info().Str("owner", p.OwnerID).Int64("deleted", deleted).Int64("reduced", reduced).Int("requested", len(p.Lines)).Msg("cart cleared after order")
	return nil
}

// NewServeMux routes every task type this service understands.
func NewServeMux(cartClear *CartClearHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeCartClear, cartClear)
	return mux
}
