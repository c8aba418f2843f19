package skyrush_api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultMaxUploadBytes = 5 << 20
	uploadField           = "image"
	multipartMemory       = 1 << 20
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// saveUpload stores the "image" part in the upload dir and returns its path.
// A request without that part yields "" and no error; the package service
// owns the missing-image rule and the removal of the file.
func (a *SkyRushAPI) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", apperr.BadRequest("File too large")
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", apperr.BadRequest("Invalid multipart form")
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.BadRequest("Invalid image upload")
	}
	defer file.Close()

	if header.Size > a.opts.MaxUploadBytes {
		return "", apperr.BadRequest("File too large")
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperr.Internal(err, "Failed to read upload")
	}
	if _, ok := allowedImageTypes[http.DetectContentType(sniff[:n])]; !ok {
		return "", apperr.BadRequest("Unsupported file format")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", apperr.Internal(err, "Failed to read upload")
	}

	if err := os.MkdirAll(a.opts.UploadDir, 0o755); err != nil {
		return "", apperr.Internal(err, "Failed to store upload")
	}
	name := time.Now().UTC().Format("2006-01-02T15-04-05.000Z") + "-" + uuid.NewString() + "-" + cleanFilename(header.Filename)
	path := filepath.Join(a.opts.UploadDir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", apperr.Internal(err, "Failed to store upload")
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", apperr.Internal(err, "Failed to store upload")
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", apperr.Internal(err, "Failed to store upload")
	}
	return path, nil
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == "_" {
		return "upload"
	}
	return name
}
