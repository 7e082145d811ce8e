package validation

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/skintone-inspector/internal/errors"
)

// DefaultImageExtensions lists the upload types the decoder accepts.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// UploadFile describes one uploaded part before it is read.
type UploadFile struct {
	Name string
	Size int64
}

// UploadValidator checks uploaded image files by count, size and extension
type UploadValidator struct {
	maxFiles     int
	maxFileBytes int64
	extensions   []string
}

// NewUploadValidator creates an UploadValidator; non-positive limits disable the check
func NewUploadValidator(maxFiles int, maxFileBytes int64) *UploadValidator {
	return &UploadValidator{
		maxFiles:     maxFiles,
		maxFileBytes: maxFileBytes,
		extensions:   DefaultImageExtensions,
	}
}

// ValidateFile checks a single upload
func (v *UploadValidator) ValidateFile(file UploadFile) error {
	if strings.TrimSpace(file.Name) == "" {
		return apperrors.NewValidationError("file name cannot be empty", nil)
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	if !slices.Contains(v.extensions, ext) {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s: unsupported file type %q (allowed: %s)", file.Name, ext, strings.Join(v.extensions, ", ")), nil)
	}
	if file.Size == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("%s: file is empty", file.Name), nil)
	}
	if v.maxFileBytes > 0 && file.Size > v.maxFileBytes {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s: file exceeds %d bytes", file.Name, v.maxFileBytes), nil)
	}
	return nil
}

// ValidateCount checks the number of files in one request. Individual
// files are checked with ValidateFile so a bad file fails on its own.
func (v *UploadValidator) ValidateCount(n int) error {
	if n == 0 {
		return apperrors.NewValidationError("at least one image is required", nil)
	}
	if v.maxFiles > 0 && n > v.maxFiles {
		return apperrors.NewValidationError(
			fmt.Sprintf("too many images: %d (limit %d)", n, v.maxFiles), nil)
	}
	return nil
}
