package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
)

// ErrMissingAsset is matched by every MissingAssetError.
var ErrMissingAsset = errors.New("missing asset")

// MissingAssetError reports a static asset that could not be read.
type MissingAssetError struct {
	Path string
	Err  error
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("missing asset %s: %v", e.Path, e.Err)
}

func (e *MissingAssetError) Unwrap() error { return e.Err }

func (e *MissingAssetError) Is(target error) bool {
	return target == ErrMissingAsset
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// AssetStore serves a static image from disk as a data URI. The file is
// read on first use; only a successful read is kept, so an asset created
// after startup is picked up on the next call.
type AssetStore struct {
	path string

	mu  sync.Mutex
	uri string
}

func NewAssetStore(path string) *AssetStore {
	return &AssetStore{path: path}
}

func (a *AssetStore) Path() string { return a.path }

// DataURI returns the asset as data:<mime>;base64,... or a MissingAssetError.
func (a *AssetStore) DataURI() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.uri != "" {
		return a.uri, nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return "", &MissingAssetError{Path: a.path, Err: err}
	}
	if len(data) == 0 {
		return "", &MissingAssetError{Path: a.path, Err: errors.New("empty file")}
	}
	a.uri = DataURI(http.DetectContentType(data), data)
	return a.uri, nil
}
