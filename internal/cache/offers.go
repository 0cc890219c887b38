// Package cache реализует необязательный кеш активных предложений в Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ndenisov/webstudio-system/internal/model"
)

const (
	activeOffersKey = "webstudio:offers:active"
	activeOffersTTL = 30 * time.Second
)

// OfferCache хранит список активных предложений в Redis с коротким TTL.
// Нулевой указатель допустим: все операции превращаются в промахи.
type OfferCache struct {
	client *redis.Client
}

// NewOfferCache создаёт кеш предложений, подключённый к Redis по указанному адресу.
func NewOfferCache(addr string) *OfferCache {
	return &OfferCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// GetActiveOffers возвращает закешированный список активных предложений.
// Второе значение false означает промах кеша.
func (c *OfferCache) GetActiveOffers(ctx context.Context) ([]model.Offer, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, activeOffersKey).Result()
	if err != nil {
		// redis.Nil и сетевые ошибки равнозначны промаху
		return nil, false
	}

	var offers []model.Offer
	if err := json.Unmarshal([]byte(raw), &offers); err != nil {
		return nil, false
	}

	return offers, true
}

// SetActiveOffers сохраняет список активных предложений.
func (c *OfferCache) SetActiveOffers(ctx context.Context, offers []model.Offer) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("marshal offers: %w", err)
	}

	if err := c.client.Set(ctx, activeOffersKey, raw, activeOffersTTL).Err(); err != nil {
		return fmt.Errorf("set offers: %w", err)
	}

	return nil
}

// Invalidate сбрасывает кеш. Вызывается после изменения предложений администратором.
func (c *OfferCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if err := c.client.Del(ctx, activeOffersKey).Err(); err != nil {
		return fmt.Errorf("invalidate offers: %w", err)
	}

	return nil
}
