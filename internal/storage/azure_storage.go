package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const blobHostSuffix = ".blob.core.windows.net"

type BlobStorage interface {
	GetImage(ctx context.Context, blobURL string) ([]byte, error)
}

// BlobLocation identifies a blob inside a storage account.
type BlobLocation struct {
	Account   string
	Container string
	Blob      string
}

// IsBlobURL reports whether rawURL points at Azure Blob Storage.
func IsBlobURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), blobHostSuffix)
}

// ParseBlobURL splits https://<account>.blob.core.windows.net/<container>/<blob>.
func ParseBlobURL(rawURL string) (BlobLocation, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return BlobLocation{}, fmt.Errorf("invalid blob URL: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, blobHostSuffix) {
		return BlobLocation{}, fmt.Errorf("not a blob storage host: %s", u.Host)
	}

	container, blob, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !ok || container == "" || blob == "" {
		return BlobLocation{}, fmt.Errorf("blob URL must name a container and a blob: %s", rawURL)
	}

	return BlobLocation{
		Account:   strings.TrimSuffix(host, blobHostSuffix),
		Container: container,
		Blob:      blob,
	}, nil
}

type azureStorage struct {
	account  string
	client   *azblob.Client
	maxBytes int64
}

func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid storage credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, blobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &azureStorage{account: strings.ToLower(accountName), client: client, maxBytes: DefaultMaxImageBytes}, nil
}

func (s *azureStorage) GetImage(ctx context.Context, blobURL string) ([]byte, error) {
	loc, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}
	if loc.Account != s.account {
		return nil, fmt.Errorf("blob account %q does not match configured account %q", loc.Account, s.account)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, loc.Container, loc.Blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	body := downloadResponse.Body
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("blob exceeds %d bytes", s.maxBytes)
	}
	return data, nil
}
