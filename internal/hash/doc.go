// Package hash provides the checksum used for archive integrity.
//
// Archive section tables and S3 uploads both use CRC32-Castagnoli
// (CRC32C): hardware accelerated on x86 (SSE4.2) and ARM (CRC
// extension), and standard across storage systems (iSCSI, Btrfs,
// RocksDB, S3 object checksums).
//
// One-shot:
//
//	sum := hash.CRC32C(data)
//
// Streaming:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
package hash
