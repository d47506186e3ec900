// Package minio implements blobstore.Store for MinIO and other
// S3-compatible object stores using the native MinIO client.
//
// Example:
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	store := miniostore.NewStore(client, "models", "fastmks/")
package minio
