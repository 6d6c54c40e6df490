package medialibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/logger/sl"

	"github.com/patrickmn/go-cache"
)

// Asset is the library's view of one photo or video. Storyshelf never copies
// asset content; it only holds these descriptors for as long as a projection
// needs them.
type Asset struct {
	ID              string           `json:"id"`
	Kind            models.MediaKind `json:"kind"`
	DurationSeconds *int             `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Client is the HTTP adapter over the media library service. Resolved assets
// are cached briefly so repeated projections of the same collection do not
// refetch an unchanged library.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	baseURL    string
	cache      *cache.Cache
}

func NewClient(log *slog.Logger, baseURL string, timeout, cacheTTL time.Duration) *Client {
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		cache:      cache.New(cacheTTL, 2*cacheTTL),
	}
}

type resolveRequest struct {
	IDs []string `json:"ids"`
}

type resolveResponse struct {
	Assets []Asset `json:"assets"`
}

// ResolveAssets resolves identifiers in one batched query and returns the
// subset that still exists in the library. Return order is the library's, not
// the request's; callers must re-associate by ID.
func (c *Client) ResolveAssets(ctx context.Context, ids []string) ([]Asset, error) {
	const op = "medialibrary.Client.ResolveAssets"

	if len(ids) == 0 {
		return nil, nil
	}

	resolved := make([]Asset, 0, len(ids))
	var missing []string
	for _, id := range ids {
		if hit, ok := c.cache.Get(assetCacheKey(id)); ok {
			resolved = append(resolved, hit.(Asset))
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return resolved, nil
	}

	body, err := json.Marshal(resolveRequest{IDs: missing})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/assets/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, asset := range out.Assets {
		c.cache.Set(assetCacheKey(asset.ID), asset, cache.DefaultExpiration)
	}

	if len(out.Assets) < len(missing) {
		c.log.Info("some assets no longer resolve",
			slog.String("op", op),
			slog.Int("requested", len(missing)),
			slog.Int("resolved", len(out.Assets)),
		)
	}

	return append(resolved, out.Assets...), nil
}

// ThumbnailURL builds the library's thumbnail URL for an asset. Loading the
// image bytes is the presentation layer's business.
func (c *Client) ThumbnailURL(assetID string, size int) string {
	return fmt.Sprintf("%s/assets/%s/thumbnail?size=%d", c.baseURL, url.PathEscape(assetID), size)
}

type playbackResponse struct {
	URL string `json:"url"`
}

// ResolvePlayableResource asks the library for a playable stream URL.
func (c *Client) ResolvePlayableResource(ctx context.Context, assetID string) (string, error) {
	const op = "medialibrary.Client.ResolvePlayableResource"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/assets/%s/playback", c.baseURL, url.PathEscape(assetID)), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var out playbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Error("failed to decode playback response", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out.URL, nil
}

func assetCacheKey(id string) string {
	return "asset:" + id
}
