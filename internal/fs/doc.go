// Package fs abstracts the filesystem operations behind the local sample
// store so durability paths can be tested with injected faults.
//
// Production code uses [Default], backed by the os package. Tests wrap it
// with [FaultyFS] to make writes, syncs or closes fail on selected files:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailOnSync: true})
//
// The interfaces take no context.Context: local filesystem calls are not
// interruptible at the syscall level. Remote stores with real cancellation
// needs implement samplestore.BlobStore instead.
package fs
