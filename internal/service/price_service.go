package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"crypto-sentinel/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultPriceCacheTTL = 90 * time.Second

// SnapshotProvider fetches a fresh market snapshot from upstream.
type SnapshotProvider interface {
	FetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// PriceService serves the Bitcoin snapshot from Redis when a recent one is
// cached and falls through to the provider otherwise. Cache errors are
// logged and never fail the fetch.
type PriceService struct {
	tracer   trace.Tracer
	provider SnapshotProvider
	redis    RedisClient
	ttl      time.Duration
}

func NewPriceService(tracer trace.Tracer, provider SnapshotProvider, redisClient RedisClient, ttl time.Duration) *PriceService {
	if ttl <= 0 {
		ttl = defaultPriceCacheTTL
	}
	return &PriceService{
		tracer:   tracer,
		provider: provider,
		redis:    redisClient,
		ttl:      ttl,
	}
}

// FetchSnapshot returns the cached snapshot or a live one.
func (s *PriceService) FetchSnapshot(ctx context.Context) (domain.PriceSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.fetch-snapshot")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getPriceCache(ctx, domain.AssetBitcoin)
		if err != nil {
			slog.Warn("redis cache read error", "error", err)
		}
		if cached != nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return *cached, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	snap, err := s.provider.FetchSnapshot(ctx)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	if s.redis != nil {
		if err := s.setPriceCache(ctx, snap); err != nil {
			slog.Warn("redis cache write error", "symbol", snap.Symbol, "error", err)
		}
	}
	return snap, nil
}

func cacheKey(symbol string) string {
	return "price:" + symbol
}

func (s *PriceService) setPriceCache(ctx context.Context, snapshot domain.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, cacheKey(snapshot.Symbol), data, s.ttl).Err()
}

func (s *PriceService) getPriceCache(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	data, err := s.redis.Get(ctx, cacheKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	if !snapshot.PriceUSD.IsPositive() {
		return nil, nil
	}
	return &snapshot, nil
}
