package redisx

import "time"

const (
	// Idempotent cart assembly: idem:cart:assemble:{user_id}:{key} -> cart_id | pending
	KeyIdemCartAssemble = "idem:cart:assemble:%s:%s"

	// Catalog read cache: catalog:{kind}:{id} -> JSON product / variant
	KeyCatalogUnit = "catalog:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLCatalog     = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
