package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/redis"
)

const leaseScope = "pipeline"

// Lease grants at most one in-flight generation pipeline per product. The
// token identifies the holder so a release after the TTL expired cannot drop
// a lease re-acquired by someone else.
type Lease struct {
	store redis.LeaseStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewLease builds the per-product pipeline lease manager.
func NewLease(store redis.LeaseStore, ttl time.Duration, logg *logger.Logger) (*Lease, error) {
	if store == nil {
		return nil, errors.New("lease store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("lease ttl must be positive")
	}
	return &Lease{store: store, ttl: ttl, logg: logg}, nil
}

// Acquire attempts to take the product's lease. It returns the holder token
// on success and false when another pipeline already holds it.
func (l *Lease) Acquire(ctx context.Context, productID uuid.UUID) (string, bool, error) {
	token := uuid.NewString()
	key := l.store.LeaseKey(leaseScope, productID.String())
	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if the caller still holds it. A mismatched or
// missing token means the lease expired mid-run and was taken over; that is
// logged, not treated as an error.
func (l *Lease) Release(ctx context.Context, productID uuid.UUID, token string) {
	key := l.store.LeaseKey(leaseScope, productID.String())
	current, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, goredis.Nil) && l.logg != nil {
			l.logg.Error(ctx, "pipeline lease read failed", err)
		}
		return
	}
	if current != token {
		if l.logg != nil {
			l.logg.Warn(l.logg.WithProductID(ctx, productID.String()), "pipeline lease changed holder before release")
		}
		return
	}
	if err := l.store.Del(ctx, key); err != nil && l.logg != nil {
		l.logg.Error(ctx, "pipeline lease release failed", err)
	}
}
