// Package s3 stores run artifacts in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("cvnet/run1"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
// Blobs are streamed through the multipart uploader, so artifacts larger
// than memory can be written. An object only appears once its upload
// completes.
package s3
