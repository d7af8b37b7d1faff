// Package minio provides a samplestore.BlobStore backed by the MinIO
// client, for MinIO itself and other S3-compatible systems (Ceph,
// SeaweedFS, Garage) without pulling in the AWS SDK.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := miniostore.NewStore(client, "anneal-runs", "lab-7/")
//	err = archive.WriteTo(ctx, store, "run-0042.smp", set)
package minio
