package cloudinary

import (
	"context"

	"github.com/BearBump/SkyRush/internal/integrations/media"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
)

const DefaultFolder = "skyrush_packages"

type Client struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func New(cloudName, apiKey, apiSecret, folder string) (*Client, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary init")
	}
	if folder == "" {
		folder = DefaultFolder
	}
	return &Client{cld: cld, folder: folder}, nil
}

func (c *Client) Upload(ctx context.Context, localPath string) (media.UploadResult, error) {
	resp, err := c.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		Folder:      c.folder,
		UseFilename: api.Bool(true),
	})
	if err != nil {
		return media.UploadResult{}, errors.Wrap(err, "cloudinary upload")
	}
	if resp.Error.Message != "" {
		return media.UploadResult{}, errors.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return media.UploadResult{}, errors.New("cloudinary upload: empty secure url")
	}
	return media.UploadResult{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}
