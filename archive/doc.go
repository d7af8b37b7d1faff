// Package archive serializes sample sets into a compact, checksummed
// container format.
//
// An archive holds four sections: a manifest with the set shape, the
// per-sample energies, the final spin rows and any intermediate
// checkpoints. Spin rows are stored as roaring bitmaps of the variables
// holding +1. Sections are block-compressed (zstd by default, lz4 and
// uncompressed also supported) and individually checksummed with CRC32C,
// so corruption is reported per section instead of surfacing as a
// misparse.
//
// Archives live on any samplestore.BlobStore:
//
//	store, err := samplestore.NewLocalStore("./runs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = archive.WriteTo(ctx, store, "run-0042.smp", set)
//	set2, err := archive.ReadFrom(ctx, store, "run-0042.smp")
//
// Write and Read work against plain io streams for callers that manage
// their own storage. Blobs from the local store are decoded straight out
// of the memory-mapped file.
package archive
