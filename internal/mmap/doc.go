// Package mmap provides read-only memory-mapped file access for zero-copy I/O.
//
// The local sample store uses it to hand archive readers a direct view of the
// file contents instead of copying them through kernel buffers. Archives with
// many samples can reach hundreds of megabytes; decoding them out of a mapping
// keeps the resident overhead at one page cache copy.
//
// # Usage
//
//	m, err := mmap.Open("run-42.annealgo")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to file contents
//	data := m.Bytes()
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): Uses mmap(2) with madvise(2) for access hints
//   - Windows: Uses CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// File is safe for concurrent read access. Close() is idempotent and
// protected by atomic operations. Callers must ensure no goroutines access
// Bytes() after Close() returns.
package mmap
