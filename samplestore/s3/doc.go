// Package s3 provides an S3 implementation of samplestore.BlobStore
// for annealed sample archives.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("anneal-runs/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// Wrap the store in samplestore.NewCachingStore to keep hot archive
// blocks in memory between reads.
//
// # Features
//
//   - Range reads for partial archive fetches
//   - Streaming multipart uploads with CRC32C integrity validation
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - CommitStore: atomic run pointers via DynamoDB conditional writes
package s3
