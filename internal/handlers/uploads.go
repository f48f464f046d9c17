package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
)

const multipartMemory = 8 << 20

// uploads spools multipart files to temporary files that live until cleanup.
type uploads struct {
	r     *http.Request
	paths []string
}

// parseUploads reads a multipart form of at most maxBytes.
func parseUploads(w http.ResponseWriter, r *http.Request, maxBytes int64) (*uploads, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("upload too large")
		}
		return nil, apperr.Validation("invalid multipart form", err.Error())
	}
	return &uploads{r: r}, nil
}

// value returns a trimmed text field.
func (u *uploads) value(name string) string {
	return strings.TrimSpace(u.r.FormValue(name))
}

// file spools the named part to disk. A missing part yields a zero File.
func (u *uploads) file(name string) (media.File, error) {
	part, header, err := u.r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return media.File{}, nil
		}
		return media.File{}, apperr.Validation(fmt.Sprintf("invalid %s upload", name))
	}
	defer part.Close()

	tmp, err := os.CreateTemp("", "vidtube-upload-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return media.File{}, apperr.Internal("create temp file", err)
	}
	u.paths = append(u.paths, tmp.Name())

	size, err := io.Copy(tmp, part)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return media.File{}, apperr.Internal("spool upload", err)
	}

	return media.File{Name: header.Filename, Path: tmp.Name(), Size: size}, nil
}

// cleanup removes every spooled file and the parsed form's own temp files.
func (u *uploads) cleanup() {
	if u == nil {
		return
	}
	logger := logging.FromContext(u.r.Context())
	for _, path := range u.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove upload temp file", "path", path, "error", err)
		}
	}
	if u.r.MultipartForm != nil {
		_ = u.r.MultipartForm.RemoveAll()
	}
}
