// internal/app/system/paging/paging.go
package paging

import (
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Cursors carry the sort key as an RFC 3339 timestamp inside waffle's
// opaque (key, id) token. Mongo stores dates with millisecond precision,
// so keys built from stored rows round-trip exactly.
const cursorLayout = time.RFC3339Nano

// ErrInvalidCursor is returned for cursor strings that do not decode.
var ErrInvalidCursor = errors.New("paging: invalid cursor")

// Direction indicates the pagination direction.
type Direction int

const (
	Backward Direction = iota // newest first, "lt" from the cursor
	Forward                   // oldest first, "gt" from the cursor
)

// Cursor is a decoded position in a (time, _id) ordering.
type Cursor struct {
	At time.Time
	ID primitive.ObjectID
}

// EncodeCursor builds the opaque cursor string for a row.
func EncodeCursor(at time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(at.UTC().Format(cursorLayout), id)
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(s string) (Cursor, error) {
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok || c.ID.IsZero() {
		return Cursor{}, ErrInvalidCursor
	}
	at, err := time.Parse(cursorLayout, c.CI)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{At: at.UTC(), ID: c.ID}, nil
}

// KeysetConfig describes one page request.
type KeysetConfig struct {
	Direction Direction
	SortOrder int // 1 for ascending, -1 for descending
	Cursor    *Cursor
	Limit     int
}

// Latest selects the newest limit rows.
func Latest(limit int) KeysetConfig {
	return KeysetConfig{Direction: Backward, SortOrder: -1, Limit: limit}
}

// ConfigureKeyset determines the direction and decodes the cursor.
// before pages toward older rows, after toward newer ones; before wins
// when both are set. With neither, the newest rows are selected.
func ConfigureKeyset(before, after string, limit int) (KeysetConfig, error) {
	cfg := Latest(limit)
	raw := before
	if before == "" && after != "" {
		cfg.Direction = Forward
		cfg.SortOrder = 1
		raw = after
	}
	if raw == "" {
		return cfg, nil
	}
	c, err := DecodeCursor(raw)
	if err != nil {
		return KeysetConfig{}, err
	}
	cfg.Cursor = &c
	return cfg, nil
}

// LimitPlusOne returns Limit+1 for look-ahead pagination (fetch one extra
// row to detect whether more exist).
func (cfg KeysetConfig) LimitPlusOne() int64 { return int64(cfg.Limit + 1) }

// ApplyToFind configures FindOptions with sort and limit for the page.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(cfg.LimitPlusOne())
}

// KeysetWindow returns the cursor condition for the query filter, or nil
// when no cursor is set. The key is compared as a BSON date.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	op := "$gt"
	if cfg.Direction == Backward {
		op = "$lt"
	}
	return bson.M{"$or": []bson.M{
		{sortField: bson.M{op: cfg.Cursor.At}},
		{sortField: cfg.Cursor.At, "_id": bson.M{op: cfg.Cursor.ID}},
	}}
}

// Result holds the output of TrimPage, in chronological terms.
type Result struct {
	HasPrev bool // older rows exist
	HasNext bool // newer rows exist
}

// TrimPage drops the look-ahead row fetched by ApplyToFind and leaves rows
// in chronological order (oldest first).
func TrimPage[T any](rows *[]T, cfg KeysetConfig) Result {
	extra := len(*rows) > cfg.Limit
	if extra {
		*rows = (*rows)[:cfg.Limit]
	}
	if cfg.Direction == Backward {
		Reverse(*rows)
		return Result{HasPrev: extra, HasNext: cfg.Cursor != nil}
	}
	return Result{HasPrev: cfg.Cursor != nil, HasNext: extra}
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors creates cursors for the first and last rows of a page in
// chronological order: prev pages back (pass as before), next pages
// forward (pass as after).
func BuildCursors[T any](rows []T, keyFn func(T) time.Time, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first := rows[0]
	last := rows[len(rows)-1]
	return EncodeCursor(keyFn(first), idFn(first)), EncodeCursor(keyFn(last), idFn(last))
}
