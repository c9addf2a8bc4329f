package api

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/repository"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	// maxPage keeps the row offset within a 32-bit integer.
	maxPage = math.MaxInt32 / maxLimit
)

// pageFrom reads ?page= and ?limit=. Missing or non-numeric values take
// the defaults; anything below 1 is raised to 1 and both are capped.
func pageFrom(c *gin.Context) repository.Page {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultLimit)

	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return repository.Page{Page: page, Limit: limit}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// paged is the list payload shape: the items under key plus the numbers
// the frontend needs to draw pagination.
func paged(key string, items any, p repository.Page, total int64) gin.H {
	return gin.H{
		key:     items,
		"page":  p.Page,
		"limit": p.Limit,
		"total": total,
	}
}
