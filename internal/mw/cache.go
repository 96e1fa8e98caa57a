package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// cachedView is a rendered GET response replayed to the same caller until it expires
// or a write flushes the cache.
type cachedView struct {
	status int
	header http.Header
	body   []byte
}

// recorder tees everything the handler writes into a buffer.
type recorder struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w recorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache is a middleware for in-memory caching of GET responses. Entries are keyed by
// caller and URI, since most views depend on who is asking. Any successful write
// request flushes the whole cache. It must run after Authenticate.
//
// A request carrying "Cache-Control: no-cache" skips the lookup but still refreshes the
// entry; a response carrying "Cache-Control: no-store" is never stored.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if c.Writer.Status() < http.StatusBadRequest {
				store.Flush()
			}
			return
		}

		key := cacheKey(c)
		if !strings.Contains(c.GetHeader("Cache-Control"), "no-cache") {
			if v, found := store.Get(key); found {
				replay(c, v.(cachedView))
				return
			}
		}

		rec := recorder{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = rec
		c.Header("X-Cache", "MISS")
		c.Next()

		status := rec.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		if strings.Contains(rec.Header().Get("Cache-Control"), "no-store") {
			return
		}
		store.Set(key, cachedView{
			status: status,
			header: rec.Header().Clone(),
			body:   rec.buf.Bytes(),
		}, ttl)
	}
}

func replay(c *gin.Context, v cachedView) {
	header := c.Writer.Header()
	for k, vals := range v.header {
		header[k] = vals
	}
	header.Set("X-Cache", "HIT")
	c.Writer.WriteHeader(v.status)
	_, _ = c.Writer.Write(v.body)
	c.Abort()
}

func cacheKey(c *gin.Context) string {
	uid := "anonymous"
	if id, ok := CurrentIdentity(c); ok {
		uid = id.UID
	}
	// URL.RequestURI is set for every request; the RequestURI field only for server-read ones.
	return uid + " " + c.Request.URL.RequestURI()
}
