// Package redis implements the arena and game catalog cache.
//
// Reads go through an in-memory layer, then Redis, then Directus. Writes
// invalidate both layers and broadcast on a pub/sub channel so every
// instance drops its in-memory copy. Redis is optional; without it the cache
// runs with the in-memory layer alone.
package redis
