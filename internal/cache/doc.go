// Package cache implements the in-memory TTL cache shared by the catalog
// services.
//
// Goals for this package:
//   - Keep four independent regions (works, departments, search results,
//     department id lists), each with its own TTL
//   - Serialize every operation through one mutex so callers from
//     different goroutines see atomic reads and writes
//   - Expire lazily on read, sweep in bulk once the unbounded regions
//     grow past a threshold, and optionally sweep on a ticker
//   - Track hits, misses and expirations per region and export them to
//     Prometheus on demand
//
// There is no capacity limit and no LRU ordering: entries only leave a
// region by expiring, by being replaced, or by explicit invalidation.
package cache
