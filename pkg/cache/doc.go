// Package cache keeps the latest enriched record of every watched entry in
// Redis, so that readers (the report renderer, the watch-mode health page)
// never have to query the snapshot history.
//
// The manager is a pipeline persister: wire it next to the durable store
// with store.Fanout and every emitted record is also written here.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, 24*time.Hour)
//
//	// Store the record emitted by a run
//	if err := manager.Persist(ctx, localID, record); err != nil {
//		return err
//	}
//
//	// Read it back
//	entry, err := manager.Get(ctx, localID)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Never captured or expired
//	}
//
// # Metrics
//
//   - vk_snapshot_cache_hits_total - Cache hits
//   - vk_snapshot_cache_misses_total - Cache misses
//   - vk_snapshot_cache_writes_total - Records written
//   - vk_snapshot_cache_errors_total{operation} - Cache operation errors
package cache
