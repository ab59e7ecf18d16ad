package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/pkg/redis"
)

const (
	// Cache key prefixes
	eventDetailKeyPrefix = "event:detail:"
	eventListKeyPrefix   = "event:list:"

	// Default TTL for event caches
	eventCacheTTL = 5 * time.Minute
)

// CachedEventRepository wraps EventRepository with Redis caching. Stock
// mutations pass straight through and invalidate the cached copy, so cached
// availability is at most one TTL stale and never used for reservation
// decisions.
type CachedEventRepository struct {
	repo  EventRepository
	cache *redis.Client
}

// NewCachedEventRepository creates a new CachedEventRepository
func NewCachedEventRepository(repo EventRepository, cache *redis.Client) *CachedEventRepository {
	return &CachedEventRepository{
		repo:  repo,
		cache: cache,
	}
}

// Create creates a new event and invalidates list caches
func (r *CachedEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if err := r.repo.Create(ctx, event); err != nil {
		return err
	}
	r.invalidateListCaches(ctx)
	return nil
}

// GetByID retrieves an event by ID with caching
func (r *CachedEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	cacheKey := eventDetailKeyPrefix + id
	cached, err := r.cache.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		var event domain.Event
		if err := json.Unmarshal([]byte(cached), &event); err == nil {
			return &event, nil
		}
	}

	// Cache miss - get from database
	event, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheEvent(ctx, cacheKey, event)

	return event, nil
}

// List lists events with filters and pagination (cached only for unfiltered
// queries; searches bypass the cache)
func (r *CachedEventRepository) List(ctx context.Context, filter EventFilter) ([]*domain.Event, int, error) {
	if filter.Query != "" || filter.Category != "" {
		return r.repo.List(ctx, filter)
	}

	cacheKey := fmt.Sprintf("%sall:%s:%d:%d", eventListKeyPrefix, filter.Sort, filter.Limit, filter.Offset)
	cached, err := r.cache.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		var result cachedEventList
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result.Events, result.Total, nil
		}
	}

	// Cache miss - get from database
	events, total, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	r.cacheEventList(ctx, cacheKey, events, total)

	return events, total, nil
}

// Update updates an event and invalidates caches
func (r *CachedEventRepository) Update(ctx context.Context, id string, update EventUpdate) error {
	if err := r.repo.Update(ctx, id, update); err != nil {
		return err
	}
	r.invalidateEventCaches(ctx, id)
	return nil
}

// Delete deletes an event and invalidates caches
func (r *CachedEventRepository) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidateEventCaches(ctx, id)
	return nil
}

// ReserveStock decrements stock and invalidates the cached event so the
// next read reflects the new availability
func (r *CachedEventRepository) ReserveStock(ctx context.Context, eventID string, items []domain.ReservationItem) error {
	if err := r.repo.ReserveStock(ctx, eventID, items); err != nil {
		return err
	}
	r.cache.Del(ctx, eventDetailKeyPrefix+eventID)
	return nil
}

// RestoreStock adds stock back and invalidates the cached event
func (r *CachedEventRepository) RestoreStock(ctx context.Context, eventID string, perType map[string]int) (bool, error) {
	found, err := r.repo.RestoreStock(ctx, eventID, perType)
	if err != nil {
		return found, err
	}
	if found {
		r.cache.Del(ctx, eventDetailKeyPrefix+eventID)
	}
	return found, nil
}

// --- Helper functions ---

type cachedEventList struct {
	Events []*domain.Event `json:"events"`
	Total  int             `json:"total"`
}

func (r *CachedEventRepository) cacheEvent(ctx context.Context, key string, event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	r.cache.Set(ctx, key, string(data), eventCacheTTL)
}

func (r *CachedEventRepository) cacheEventList(ctx context.Context, key string, events []*domain.Event, total int) {
	data, err := json.Marshal(cachedEventList{Events: events, Total: total})
	if err != nil {
		return
	}
	r.cache.Set(ctx, key, string(data), eventCacheTTL)
}

func (r *CachedEventRepository) invalidateEventCaches(ctx context.Context, id string) {
	r.cache.Del(ctx, eventDetailKeyPrefix+id)
	r.invalidateListCaches(ctx)
}

func (r *CachedEventRepository) invalidateListCaches(ctx context.Context) {
	// KEYS is off the table in production, so walk the list keys with SCAN
	iter := r.cache.Client().Scan(ctx, 0, eventListKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		r.cache.Del(ctx, iter.Val())
	}
}

// Ensure CachedEventRepository implements EventRepository
var _ EventRepository = (*CachedEventRepository)(nil)
