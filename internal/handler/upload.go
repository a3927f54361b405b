package handler

import (
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/pos-billing/internal/domain/product"
)

// UploadsDir is the subdirectory of the static directory holding product
// images.
const UploadsDir = "uploads"

const maxFilenameLen = 64

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// upload is an image accepted from a multipart form and not yet written.
type upload struct {
	file *multipart.FileHeader
	name string
}

// URL returns the public path the file is served from once stored.
func (u *upload) URL() string {
	return path.Join("/static", UploadsDir, u.name)
}

// formUpload returns the image sent in field, or nil when no file was sent.
// The file type is checked here; nothing is written.
func (h *Handler) formUpload(r *http.Request, field string) (*upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Filename == "" {
		return nil, nil
	}
	if h.staticDir == "" {
		return nil, errors.New("image uploads are not configured")
	}

	name := safeFilename(files[0].Filename)
	if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, &product.ValidationError{Field: field, Reason: "unsupported file type"}
	}
	return &upload{file: files[0], name: uuid.NewString()[:8] + "_" + name}, nil
}

func (h *Handler) uploadPath(up *upload) string {
	return filepath.Join(h.staticDir, UploadsDir, up.name)
}

// storeUpload writes up under the uploads directory. A nil upload is a no-op.
func (h *Handler) storeUpload(up *upload) error {
	if up == nil {
		return nil
	}
	src, err := up.file.Open()
	if err != nil {
		return errors.Wrap(err, "open upload")
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Join(h.staticDir, UploadsDir), 0o755); err != nil {
		return errors.Wrap(err, "create uploads dir")
	}
	dst, err := os.OpenFile(h.uploadPath(up), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "create upload")
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(h.uploadPath(up))
		return errors.Wrap(err, "write upload")
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(h.uploadPath(up))
		return errors.Wrap(err, "close upload")
	}
	return nil
}

// discardUpload removes a stored upload whose product was not saved.
func (h *Handler) discardUpload(r *http.Request, up *upload) {
	if up == nil {
		return
	}
	if err := os.Remove(h.uploadPath(up)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		zctx.From(r.Context()).Warn("Remove orphaned upload", zap.String("file", up.name), zap.Error(err))
	}
}

// safeFilename strips directories and keeps letters, digits, dots, dashes
// and underscores. Long names are shortened, keeping the extension.
func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		case c == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "image"
	}
	if len(out) > maxFilenameLen {
		ext := filepath.Ext(out)
		if len(ext) > 8 {
			ext = ""
		}
		out = out[:maxFilenameLen-len(ext)] + ext
	}
	return out
}
