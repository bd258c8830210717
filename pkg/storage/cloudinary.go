package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/pkg/config"
)

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CloudinaryUploader pushes images to the Cloudinary upload API and returns
// the durable secure URL.
type CloudinaryUploader struct {
	client *resty.Client
	cfg    config.CloudinaryConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewCloudinaryUploader builds an uploader. Signed uploads are used when an
// API secret is configured, otherwise the unsigned upload preset.
func NewCloudinaryUploader(cfg config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud name missing")
	}
	if cfg.APISecret == "" && cfg.UploadPreset == "" {
		return nil, fmt.Errorf("cloudinary requires an api secret or an upload preset")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com/v1_1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	return &CloudinaryUploader{client: client, cfg: cfg, logger: logger, now: time.Now}, nil
}

// Upload sends the image and returns its secure URL. The body is a one-shot
// stream, so failed uploads are not retried here.
func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	form := map[string]string{}
	if u.cfg.APISecret != "" {
		ts := strconv.FormatInt(u.now().Unix(), 10)
		form["timestamp"] = ts
		form["api_key"] = u.cfg.APIKey
		form["signature"] = u.sign(map[string]string{"timestamp": ts})
	} else {
		form["upload_preset"] = u.cfg.UploadPreset
	}

	var out cloudinaryUploadResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetFormData(form).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/%s/image/upload", u.cfg.CloudName))
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		u.logger.Warn("cloudinary rejected upload", zap.Int("status", resp.StatusCode()), zap.String("message", msg))
		return "", fmt.Errorf("cloudinary upload rejected: %s", msg)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload returned no url")
	}
	return out.SecureURL, nil
}

// sign implements Cloudinary's SHA-1 request signature: sorted params joined
// with '&', followed by the api secret.
func (u *CloudinaryUploader) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&") + u.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}
