// Package fs provides the filesystem abstraction used by the local artifact
// store, a fault-injecting wrapper for tests and an advisory lock that keeps
// two runs off one work directory.
//
// Production code uses [Default]:
//
//	f, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//
// Tests wrap it with [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".sm", fs.Fault{FailAfterBytes: 128})
//
// Operations take no context.Context. Local syscalls are not interruptible;
// remote backends live in blobstore and do take a context.
package fs
