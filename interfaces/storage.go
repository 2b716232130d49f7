package interfaces

import "context"

// StorageService keeps small documents, such as the scam registry, in object storage.
type StorageService interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}
