package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrBlobStorageDisabled indicates a blob URL arrived without storage credentials
	ErrBlobStorageDisabled = errors.New("blob storage is not configured")

	// ErrCacheUnavailable indicates the result cache could not be reached
	ErrCacheUnavailable = errors.New("result cache unavailable")
)
