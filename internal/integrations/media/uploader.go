package media

import "context"

type UploadResult struct {
	URL      string
	PublicID string
}

// Uploader moves a local file to durable media hosting.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (UploadResult, error)
}
