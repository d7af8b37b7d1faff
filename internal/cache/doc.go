// Package cache provides LRU caching for archive block data.
//
// The sample store wraps remote backends (S3, MinIO) with a read-through
// block cache so repeated archive reads hit RAM instead of the network.
// Blocks are keyed by blob path and byte offset; the cached bytes are the
// raw stored bytes, before checksum verification and decompression.
//
// LRUBlockCache is a single byte-size bounded LRU. ShardedLRUBlockCache
// spreads keys over independent shards for concurrent readers. Both accept
// an optional resource.Controller so cached bytes count against the global
// memory budget.
package cache
