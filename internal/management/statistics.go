package management

import (
	"context"
	"sync"
	"time"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/config"
	"github.com/dawidpereira/quetty-sub002/internal/servicebus"
)

// TokenSource supplies a fresh management-plane bearer token, scoped
// https://management.azure.com/.default per spec.md §6.
type TokenSource func(ctx context.Context) (string, error)

type cacheEntry struct {
	active    int64
	dlq       int64
	fetchedAt time.Time
}

// StatisticsService wraps Client with a per-queue TTL cache, per
// spec.md §4.7.
type StatisticsService struct {
	client *Client
	cfg    config.Statistics

	subscriptionID string
	resourceGroup  string
	namespace      string
	tokenSource    TokenSource

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewStatisticsService builds a StatisticsService over client, scoped to
// the given subscription/resource group/namespace.
func NewStatisticsService(client *Client, cfg config.Statistics, subscriptionID, resourceGroup, namespace string, tokenSource TokenSource) *StatisticsService {
	return &StatisticsService{
		client:         client,
		cfg:            cfg,
		subscriptionID: subscriptionID,
		resourceGroup:  resourceGroup,
		namespace:      namespace,
		tokenSource:    tokenSource,
		cache:          make(map[string]cacheEntry),
	}
}

// IsAvailable reports whether statistics display is both enabled and
// backed by the Management API, per spec.md §4.7.
func (s *StatisticsService) IsAvailable() bool {
	return s.cfg.DisplayEnabled && s.cfg.UseManagementAPI
}

func (s *StatisticsService) ttl() time.Duration {
	return time.Duration(s.cfg.CacheTTLSeconds) * time.Second
}

func (s *StatisticsService) entry(ctx context.Context, queue string) (cacheEntry, bool, error) {
	s.mu.Lock()
	cached, ok := s.cache[queue]
	stale := !ok || time.Since(cached.fetchedAt) >= s.ttl()
	s.mu.Unlock()

	if !stale {
		return cached, true, nil
	}

	token, err := s.tokenSource(ctx)
	if err != nil {
		return cacheEntry{}, false, err
	}
	active, dlq, err := s.client.GetQueueCounts(ctx, token, s.subscriptionID, s.resourceGroup, s.namespace, queue)
	if err != nil {
		if apperrors.Is(err, apperrors.KindQueueNotFound) {
			return cacheEntry{}, false, nil
		}
		return cacheEntry{}, false, err
	}

	fresh := cacheEntry{active: active, dlq: dlq, fetchedAt: time.Now()}
	s.mu.Lock()
	s.cache[queue] = fresh
	s.mu.Unlock()
	return fresh, true, nil
}

// GetQueueStatistics returns the active or dead-letter count for queue
// depending on kind, or ok=false when statistics are disabled,
// unavailable, or the queue was not found, per spec.md §4.7.
func (s *StatisticsService) GetQueueStatistics(ctx context.Context, queue string, kind servicebus.QueueKind) (count int64, ok bool, err error) {
	if !s.IsAvailable() {
		return 0, false, nil
	}
	e, found, err := s.entry(ctx, queue)
	if err != nil || !found {
		return 0, false, err
	}
	if kind == servicebus.QueueKindDeadLetter {
		return e.dlq, true, nil
	}
	return e.active, true, nil
}

// GetBothQueueCounts returns both active and dead-letter counts for queue
// from a single fetch, per spec.md §4.7.
func (s *StatisticsService) GetBothQueueCounts(ctx context.Context, queue string) (active, deadLetter int64, ok bool, err error) {
	if !s.IsAvailable() {
		return 0, 0, false, nil
	}
	e, found, err := s.entry(ctx, queue)
	if err != nil || !found {
		return 0, 0, false, err
	}
	return e.active, e.dlq, true, nil
}

// Invalidate drops the cached entry for queue, forcing the next call to
// refetch regardless of TTL.
func (s *StatisticsService) Invalidate(queue string) {
	s.mu.Lock()
	delete(s.cache, queue)
	s.mu.Unlock()
}
