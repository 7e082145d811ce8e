package repository

import (
	"context"
	"fmt"
	"net/url"

	"github.com/anime-shed/skintone-inspector/internal/storage"
)

// RoutingImageRepository reads Azure blob URLs through the blob client and
// everything else over HTTP.
type RoutingImageRepository struct {
	fetcher storage.ImageFetcher
	blobs   storage.BlobStorage
}

// NewImageRepository creates an image repository. blobs may be nil when no
// storage account is configured; blob URLs are then fetched over HTTP.
func NewImageRepository(fetcher storage.ImageFetcher, blobs storage.BlobStorage) ImageRepository {
	return &RoutingImageRepository{
		fetcher: fetcher,
		blobs:   blobs,
	}
}

// FetchImage retrieves image bytes from a URL
func (r *RoutingImageRepository) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	if r.blobs != nil && storage.IsBlobURL(imageURL) {
		return r.blobs.GetImage(ctx, imageURL)
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", imageURL)
	}
	return r.fetcher.FetchImage(ctx, imageURL)
}

// ValidateImageURL accepts absolute http(s) URLs with a host
func (r *RoutingImageRepository) ValidateImageURL(imageURL string) error {
	if imageURL == "" {
		return ErrInvalidImageURL
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImageURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidImageURL, imageURL)
	}
	return nil
}
