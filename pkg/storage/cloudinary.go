package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/noah-isme/jobfair-forms-api/pkg/config"
)

const (
	resourceImage = "image"
	resourceRaw   = "raw"
	resourceVideo = "video"
)

// cloudinaryAPI is the subset of the SDK upload API the storage needs.
type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStorage stores assets in a Cloudinary media library.
type CloudinaryStorage struct {
	api          cloudinaryAPI
	cloudName    string
	folder       string
	uploadPreset string
	timeout      time.Duration
	now          func() time.Time
}

// NewCloudinaryStorage validates the configuration and builds the SDK client.
func NewCloudinaryStorage(cfg config.CloudinaryConfig) (*CloudinaryStorage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary configuration missing: cloud name, api key and api secret are required")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	if cfg.APIURL != "" {
		cld.Config.API.UploadPrefix = strings.TrimRight(cfg.APIURL, "/")
	}
	return newCloudinaryStorage(&cld.Upload, cfg), nil
}

func newCloudinaryStorage(api cloudinaryAPI, cfg config.CloudinaryConfig) *CloudinaryStorage {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CloudinaryStorage{
		api:          api,
		cloudName:    cfg.CloudName,
		folder:       strings.Trim(cfg.Folder, "/"),
		uploadPreset: cfg.UploadPreset,
		timeout:      timeout,
		now:          time.Now,
	}
}

// Upload sends the file to Cloudinary and returns the secure URL.
func (s *CloudinaryStorage) Upload(ctx context.Context, file File) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resource := resourceRaw
	if file.IsImage() {
		resource = resourceImage
	}
	name := objectName(file.Name, s.now())
	if resource == resourceImage {
		name = strings.TrimSuffix(name, path.Ext(name))
	}

	result, err := s.api.Upload(ctx, bytes.NewReader(file.Data), uploader.UploadParams{
		PublicID:     name,
		Folder:       s.folder,
		ResourceType: resource,
		UploadPreset: s.uploadPreset,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result == nil {
		return "", errors.New("cloudinary upload: empty response")
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrRejected, result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", errors.New("cloudinary response missing secure_url")
	}
	return result.SecureURL, nil
}

// Delete destroys the asset behind a secure URL returned by Upload.
func (s *CloudinaryStorage) Delete(ctx context.Context, assetURL string) error {
	publicID, resource, err := s.parseAssetURL(assetURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	invalidate := true
	result, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resource,
		Invalidate:   &invalidate,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if result == nil {
		return errors.New("cloudinary destroy: empty response")
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", result.Error.Message)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: unexpected result %q", result.Result)
	}
	return nil
}

// parseAssetURL extracts the public id and resource type from
// https://res.cloudinary.com/<cloud>/<resource>/upload/[v<version>/]<public id>.
func (s *CloudinaryStorage) parseAssetURL(assetURL string) (string, string, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", "", fmt.Errorf("parse asset url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != s.cloudName || parts[2] != "upload" {
		return "", "", fmt.Errorf("not a cloudinary asset of %s: %s", s.cloudName, assetURL)
	}
	resource := parts[1]
	switch resource {
	case resourceImage, resourceRaw, resourceVideo:
	default:
		return "", "", fmt.Errorf("unknown cloudinary resource type %q", resource)
	}

	rest := parts[3:]
	if len(rest) > 1 && isVersion(rest[0]) {
		rest = rest[1:]
	}
	publicID := strings.Join(rest, "/")
	if resource != resourceRaw {
		publicID = strings.TrimSuffix(publicID, path.Ext(publicID))
	}
	if publicID == "" {
		return "", "", fmt.Errorf("asset url has no public id: %s", assetURL)
	}
	return publicID, resource, nil
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	_, err := strconv.ParseUint(segment[1:], 10, 64)
	return err == nil
}
