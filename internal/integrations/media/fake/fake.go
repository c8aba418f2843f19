package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BearBump/SkyRush/internal/integrations/media"
	"github.com/pkg/errors"
)

// Uploader is an in-memory media host for local runs and tests. The public id
// is derived from the file name, so repeated uploads of one file agree.
type Uploader struct {
	mu       sync.Mutex
	Err      error
	uploaded []string
}

func New() *Uploader { return &Uploader{} }

func (f *Uploader) Upload(ctx context.Context, localPath string) (media.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return media.UploadResult{}, errors.Wrap(err, "fake upload")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return media.UploadResult{}, f.Err
	}
	f.uploaded = append(f.uploaded, localPath)

	base := strings.TrimSuffix(filepath.Base(localPath), filepath.Ext(localPath))
	h := fnv.New32a()
	_, _ = h.Write([]byte(base))
	publicID := fmt.Sprintf("skyrush_packages/%s_%08x", base, h.Sum32())

	return media.UploadResult{
		URL:      "https://media.skyrush.local/" + publicID + filepath.Ext(localPath),
		PublicID: publicID,
	}, nil
}

// Uploaded returns the local paths seen so far.
func (f *Uploader) Uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploaded...)
}
