// Package media uploads and deletes the files referenced by accounts and videos.
package media

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Kind selects the resource class a file is stored as.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ErrStoreUnavailable indicates the media store rejected or could not serve the call.
var ErrStoreUnavailable = errors.New("media store unavailable")

// File is a client upload spooled to local disk.
type File struct {
	// Name is the client-supplied file name; only its extension is kept.
	Name string
	// Path is the local temporary file holding the content.
	Path string
	Size int64
}

// Ext returns the lower-cased extension of the original file name.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// IsZero reports whether no file was supplied.
func (f File) IsZero() bool {
	return f.Path == ""
}

// Asset is the durable reference returned by a successful upload.
type Asset struct {
	URL string
	// Duration is the media length in seconds when the store reports one.
	Duration float64
}

// Store persists uploaded files and removes them again.
type Store interface {
	Upload(ctx context.Context, kind Kind, file File) (Asset, error)
	Delete(ctx context.Context, kind Kind, reference string) error
}
