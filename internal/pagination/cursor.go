// Package pagination implements opaque keyset cursors.
//
// A cursor encodes the sort key of the last item a client has seen: a microsecond
// timestamp plus an id tie-breaker. Pages are fetched with "strictly after this key"
// predicates, so rows inserted between two fetches never shift the next page the way
// offsets do.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/d60-Lab/newsfeed/internal/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Cursor struct {
	Micros int64  `json:"t"`
	ID     string `json:"id"`
}

func (c *Cursor) Time() time.Time { return time.UnixMicro(c.Micros).UTC() }

func Encode(micros int64, id string) string {
	b, _ := json.Marshal(Cursor{Micros: micros, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

func EncodeTime(t time.Time, id string) string {
	return Encode(t.UnixMicro(), id)
}

// Decode returns nil for the empty cursor (first page).
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Invalid("malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" {
		return nil, apperr.Invalid("malformed cursor")
	}
	return &c, nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Page 一页结果；NextCursor 为空表示没有更多
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Build 从多取一条的结果构造 Page；key 返回某项的排序键
func Build[S any, T any](rows []S, limit int, key func(S) (int64, string), conv func(S) T) Page[T] {
	page := Page[T]{Items: make([]T, 0, min(len(rows), limit))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for _, r := range rows {
		page.Items = append(page.Items, conv(r))
	}
	if hasMore && len(rows) > 0 {
		micros, id := key(rows[len(rows)-1])
		page.NextCursor = Encode(micros, id)
	}
	return page
}
