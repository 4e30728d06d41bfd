// File: internal/firebase/cookie_cache.go
package firebase

import (
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/patrickmn/go-cache"
)

// Verified session cookies are remembered briefly so every authenticated
// request does not cost a revocation check.
const (
	verifiedCookieTTL     = time.Minute
	verifiedCookieCleanup = 5 * time.Minute
)

// cookieCache maps a session cookie to its verified token.
type cookieCache struct {
	cache *cache.Cache
}

func newCookieCache(ttl, cleanup time.Duration) *cookieCache {
	return &cookieCache{cache: cache.New(ttl, cleanup)}
}

func (c *cookieCache) get(cookie string) (*auth.Token, bool) {
	v, found := c.cache.Get(cookie)
	if !found {
		return nil, false
	}
	tok, ok := v.(*auth.Token)
	return tok, ok
}

// put stores tok for the default TTL, or until the cookie itself expires
// if that is sooner.
func (c *cookieCache) put(cookie string, tok *auth.Token) {
	ttl := cache.DefaultExpiration
	if tok.Expires > 0 {
		remaining := time.Until(time.Unix(tok.Expires, 0))
		if remaining <= 0 {
			return
		}
		if remaining < verifiedCookieTTL {
			ttl = remaining
		}
	}
	c.cache.Set(cookie, tok, ttl)
}

// evictUID drops every cached cookie belonging to uid.
func (c *cookieCache) evictUID(uid string) int {
	evicted := 0
	for key, item := range c.cache.Items() {
		if tok, ok := item.Object.(*auth.Token); ok && tok.UID == uid {
			c.cache.Delete(key)
			evicted++
		}
	}
	return evicted
}
