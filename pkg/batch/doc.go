// Package batch implements the bulk primary lookup: watched identifiers are
// partitioned into consecutive groups of at most vkapi.MaxUsersPerCall and
// each group is resolved with a single users.get call.
//
// Example usage:
//
//	fetcher := batch.NewFetcher(vkClient, batch.DefaultConfig())
//	result := fetcher.FetchPrimary(ctx, entries)
//	for _, e := range result.Unresolved {
//		// report e.PlatformID
//	}
//
// The fetcher:
//   - Issues one request per group, strictly sequentially
//   - Treats a failed call as "every id in the group is unresolved"
//   - Pauses for a fixed cooldown after a failed group, then moves on
//   - Never fails the whole fetch because of one group
package batch
