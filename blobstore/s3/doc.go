// Package s3 implements blobstore.Store on Amazon S3 using aws-sdk-go-v2,
// plus a DynamoDB-backed model registry for atomic version publication.
//
// Example:
//
//	store, err := s3.New(ctx, "my-bucket", "models/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = mks.SaveModelTo(ctx, store, "index-v1.fmks")
package s3
