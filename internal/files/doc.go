// Package files stores uploaded CSV files and cleaned outputs.
//
// Store is implemented by two backends:
//
// LocalStore: a directory on disk. When no directory is configured a fresh
// temporary directory is used and removed again by Close.
//
// S3Store: a key prefix in an S3 or S3-compatible bucket, accessed through
// the S3Client interface so tests can substitute a mock.
//
// Names are flat: a name must be a single path element, and anything that
// could escape the store root is rejected with ErrInvalidName.
//
// Example usage:
//
//	uploads, err := files.NewLocalStore("", logger)
//	if err != nil {
//	    return err
//	}
//	defer uploads.Close()
//
//	if _, err := uploads.Put(ctx, "report.csv", r); err != nil {
//	    return err
//	}
//	removed, err := uploads.Cleanup(ctx, time.Hour)
package files
