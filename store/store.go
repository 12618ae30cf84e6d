package store

import "context"

/**
 * Store is the flat key-value persistence contract behind the pipeline:
 * per-step caches live under the cache prefix, per-run step records under
 * a run prefix. Scheduling never reads this state back; it is reporting
 * and cache bookkeeping only.
 */
type Store interface {
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * removing an unexisting prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}
