// Package blobstore stores the artifacts of a run: composition vector arrays,
// similarity matrices, RBH lists and the gene index table.
//
// Artifacts are written once as a stream and read back sequentially. A blob
// becomes visible under its name only when its writer is closed, so a crash
// mid-write never leaves a partial artifact behind.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-process map, for tests
//   - CachingStore: a local mirror in front of a remote store
//   - minio.Store: MinIO and S3-compatible object storage
//   - s3.Store: Amazon S3 with multipart uploads
package blobstore
