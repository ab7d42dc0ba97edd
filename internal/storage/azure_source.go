package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// AzureSource reads one scene document per blob, under the prefix
// "<collection>/" of a container.
type AzureSource struct {
	client    *azblob.Client
	container string
}

func NewAzureSource(accountName, accountKey, container string) (*AzureSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid Azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("creating Azure blob client", err)
	}

	return &AzureSource{client: client, container: container}, nil
}

func (s *AzureSource) Scenes(ctx context.Context, collectionID string) ([]*raster.Image, error) {
	prefix := collectionID + "/"
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var images []*raster.Image
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, apperrors.NewNetworkError(fmt.Sprintf("listing blobs under %s", prefix), err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil || path.Ext(*item.Name) != ".json" {
				continue
			}
			scenes, err := s.download(ctx, *item.Name, collectionID)
			if err != nil {
				return nil, err
			}
			images = append(images, scenes...)
		}
	}
	return images, nil
}

func (s *AzureSource) download(ctx context.Context, blobName, collectionID string) ([]*raster.Image, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, blobName, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("download of %s failed", blobName), err)
	}
	retryReader := resp.Body
	defer retryReader.Close()

	return decodeScenes(retryReader, collectionID)
}
