// Package cache holds the two in-memory caches of the proxy: the call
// history of paths already served upscaled and the per-resource upscale
// decisions of the tag gate. Both are bounded LRUs and both can be cleared
// wholesale, either on demand or by a Flusher on a cron schedule.
package cache
