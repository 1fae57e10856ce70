package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type kvEntryRecord struct {
	bun.BaseModel `bun:"table:saved_kv_entries,alias:kv"`

	ID        string    `bun:"id,pk"`
	StoreKey  string    `bun:"store_key,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
