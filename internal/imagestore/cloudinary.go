// Package imagestore talks to the Cloudinary upload API.
package imagestore

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

var ErrInvalidURL = errors.New("image url has no cloudinary public id")

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// BaseURL overrides the API host, mostly for tests.
	BaseURL string
}

type Client struct {
	http *resty.Client
	cfg  Config
	now  func() time.Time
}

type uploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type destroyResult struct {
	Result string `json:"result"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")+"/"+cfg.CloudName).
		SetTimeout(30 * time.Second)
	return &Client{http: httpClient, cfg: cfg, now: time.Now}
}

// Upload stores a new image under the configured folder and returns its secure URL.
func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	params := map[string]string{}
	if c.cfg.Folder != "" {
		params["folder"] = c.cfg.Folder
	}
	return c.upload(ctx, data, params)
}

// Replace overwrites the asset behind oldURL, keeping its public id. When oldURL
// does not point at a Cloudinary asset the image is uploaded as new.
func (c *Client) Replace(ctx context.Context, data []byte, oldURL string) (string, error) {
	publicID, err := PublicID(oldURL)
	if err != nil {
		return c.Upload(ctx, data)
	}
	return c.upload(ctx, data, map[string]string{
		"public_id":  publicID,
		"overwrite":  "true",
		"invalidate": "true",
	})
}

// Delete destroys the asset behind url. It reports false when Cloudinary
// answers with anything but "ok", e.g. "not found".
func (c *Client) Delete(ctx context.Context, url string) (bool, error) {
	publicID, err := PublicID(url)
	if err != nil {
		return false, err
	}

	form := c.signed(map[string]string{"public_id": publicID})
	var result destroyResult
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&result).
		SetError(&failure).
		Post("/image/destroy")
	if err != nil {
		return false, fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("cloudinary destroy: %s: %s", resp.Status(), failure.Error.Message)
	}
	return result.Result == "ok", nil
}

func (c *Client) upload(ctx context.Context, data []byte, params map[string]string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("cloudinary upload: empty image")
	}

	form := c.signed(params)
	var result uploadResult
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", "image", bytes.NewReader(data)).
		SetFormData(form).
		SetResult(&result).
		SetError(&failure).
		Post("/image/upload")
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("cloudinary upload: %s: %s", resp.Status(), failure.Error.Message)
	}
	if result.SecureURL == "" {
		return "", errors.New("cloudinary upload: response has no secure_url")
	}
	return result.SecureURL, nil
}

// signed adds api_key, timestamp and signature to params.
func (c *Client) signed(params map[string]string) map[string]string {
	form := make(map[string]string, len(params)+3)
	for k, v := range params {
		form[k] = v
	}
	form["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
	form["signature"] = sign(form, c.cfg.APISecret)
	form["api_key"] = c.cfg.APIKey
	return form
}

// sign follows Cloudinary's scheme: sha1 over the sorted k=v pairs joined by
// '&' with the secret appended.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "api_key" || k == "signature" || k == "file" || k == "resource_type" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// PublicID extracts the public id from a delivery URL: the path after the
// v<digits> version segment, without the file extension.
func PublicID(url string) (string, error) {
	parts := strings.Split(url, "/")
	for i, part := range parts {
		if !isVersion(part) || i == len(parts)-1 {
			continue
		}
		id := strings.Join(parts[i+1:], "/")
		if dot := strings.LastIndex(id, "."); dot > strings.LastIndex(id, "/") {
			id = id[:dot]
		}
		if id == "" {
			break
		}
		return id, nil
	}
	return "", ErrInvalidURL
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 10, 64)
	return err == nil
}
