package db

import (
	"time"

	"budgee-insights/src/models"

	"github.com/dgraph-io/ristretto"
)

// ReadCache holds recently served features and personas for the read API.
// It is never consulted by the batch runner. A nil *ReadCache is a no-op.
type ReadCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewReadCache(maxEntries int64, ttl time.Duration) (*ReadCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10, // number of keys to track frequency of
		MaxCost:     maxEntries,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}
	return &ReadCache{cache: cache, ttl: ttl}, nil
}

func featuresKey(userID string, window models.Window) string {
	return "features:" + string(window) + ":" + userID
}

func personaKey(userID string, window models.Window) string {
	return "persona:" + string(window) + ":" + userID
}

func (c *ReadCache) Features(userID string, window models.Window) (models.FeatureSet, bool) {
	if c == nil {
		return models.FeatureSet{}, false
	}
	v, ok := c.cache.Get(featuresKey(userID, window))
	if !ok {
		return models.FeatureSet{}, false
	}
	fs, ok := v.(models.FeatureSet)
	return fs, ok
}

func (c *ReadCache) SetFeatures(fs models.FeatureSet) {
	if c == nil {
		return
	}
	c.cache.SetWithTTL(featuresKey(fs.UserID, fs.Window), fs, 1, c.ttl)
	c.cache.Wait()
}

func (c *ReadCache) Persona(userID string, window models.Window) (models.PersonaAssignment, bool) {
	if c == nil {
		return models.PersonaAssignment{}, false
	}
	v, ok := c.cache.Get(personaKey(userID, window))
	if !ok {
		return models.PersonaAssignment{}, false
	}
	pa, ok := v.(models.PersonaAssignment)
	return pa, ok
}

func (c *ReadCache) SetPersona(pa models.PersonaAssignment) {
	if c == nil {
		return
	}
	c.cache.SetWithTTL(personaKey(pa.UserID, pa.Window), pa, 1, c.ttl)
	c.cache.Wait()
}

// Clear drops everything, e.g. after a batch run replaced stored results.
func (c *ReadCache) Clear() {
	if c == nil {
		return
	}
	c.cache.Clear()
}

func (c *ReadCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
