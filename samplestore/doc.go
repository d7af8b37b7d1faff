// Package samplestore provides storage backends for annealed sample archives.
//
// A BlobStore holds immutable blobs addressed by slash-separated names.
// LocalStore keeps archives on the local filesystem and serves reads
// through memory-mapped files, MemoryStore keeps them in process memory
// for tests, and the s3 and minio subpackages target object storage.
// CachingStore layers a block cache over any inner store so repeated
// reads against remote backends stay cheap.
//
//	store, err := samplestore.NewLocalStore("./runs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := archive.WriteTo(ctx, store, "run-0042.smp", set); err != nil {
//	    log.Fatal(err)
//	}
package samplestore
