package purchase

import (
	"time"

	"github.com/ReneKroon/ttlcache"

	"github.com/helioapps/purchasekit/model"
)

const offeringsCacheKey = "offerings"

// offeringsCache is a read-through TTL cache over the paywall join.
// Offerings are fetch-scoped and safe to serve stale for a short
// window; identity mutations purge it.
type offeringsCache struct {
	cache *ttlcache.Cache
}

func newOfferingsCache(ttl time.Duration) *offeringsCache {
	c := ttlcache.NewCache()
	c.SetTTL(ttl)
	return &offeringsCache{cache: c}
}

func (c *offeringsCache) get() ([]model.Offering, bool) {
	cached, ok := c.cache.Get(offeringsCacheKey)
	if !ok {
		return nil, false
	}
	offerings, ok := cached.([]model.Offering)
	return offerings, ok
}

func (c *offeringsCache) set(offerings []model.Offering) {
	c.cache.Set(offeringsCacheKey, offerings)
}

func (c *offeringsCache) purge() {
	c.cache.Purge()
}
