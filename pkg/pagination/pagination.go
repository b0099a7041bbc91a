package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// cursorSize is 8 bytes of unix nanoseconds followed by the 16 byte row id.
const cursorSize = 8 + 16

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last row of a page ordered by (At DESC, ID DESC).
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], with 0 meaning DefaultLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is the row count to fetch so a following page can be detected.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts rows fetched with LimitWithBuffer back to the page size and
// reports whether another page exists.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, false
	}
	return rows[:size], true
}

// Next trims rows and, when more remain, encodes the cursor of the page's
// last row using key.
func Next[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	page, more := Trim(rows, limit)
	if !more {
		return page, ""
	}
	return page, EncodeCursor(key(page[len(page)-1]))
}

// Seek is a gorm scope that resumes a (column DESC, id DESC) listing after
// cursor. A nil cursor leaves the query untouched.
func Seek(cursor *Cursor, column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor == nil {
			return db
		}
		cond := fmt.Sprintf("(%[1]s < ? OR (%[1]s = ? AND id < ?))", column)
		return db.Where(cond, cursor.At, cursor.At, cursor.ID)
	}
}

func EncodeCursor(cursor Cursor) string {
	buf := make([]byte, cursorSize)
	binary.BigEndian.PutUint64(buf[:8], uint64(cursor.At.UnixNano()))
	copy(buf[8:], cursor.ID[:])
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ParseCursor reverses EncodeCursor. A blank value yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(raw) != cursorSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCursor, len(raw))
	}
	id, err := uuid.FromBytes(raw[8:])
	if err != nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: bad row id", ErrInvalidCursor)
	}
	nanos := int64(binary.BigEndian.Uint64(raw[:8]))
	return &Cursor{At: time.Unix(0, nanos).UTC(), ID: id}, nil
}
