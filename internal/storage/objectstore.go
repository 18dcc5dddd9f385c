// Package storage uploads audio files to the object store the transcription
// backend reads from, and deletes them again during pipeline cleanup.
package storage

import "context"

// Blob identifies an uploaded object
type Blob struct {
	ID  string `json:"id"`  // storage key, used for deletion
	URL string `json:"url"` // public URL handed to the transcription backend
}

// ObjectStore is the minimal storage surface the audio pipeline needs
type ObjectStore interface {
	Upload(ctx context.Context, localPath string) (*Blob, error)
	Delete(ctx context.Context, blobID string) error
}
