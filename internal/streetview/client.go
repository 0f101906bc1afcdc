// Package streetview is the HTTP client for the panorama metadata and
// imagery endpoints.
package streetview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
)

// Metadata statuses with defined meaning. Anything else is treated as
// "no panorama here".
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

const (
	metadataPath = "/streetview/metadata"
	imageryPath  = "/streetview"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Metadata is the decoded metadata response. Fields beyond these are
// ignored.
type Metadata struct {
	Status   string `json:"status"`
	PanoID   string `json:"pano_id"`
	Location LatLng `json:"location"`
}

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	baseURL  *url.URL
	key      string
	startNow func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, base, key string) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		logger:   logger,
		client:   client,
		baseURL:  u,
		key:      key,
		startNow: time.Now,
	}, nil
}

// Metadata resolves the panorama closest to a point. The endpoint
// reports absence in the JSON status field rather than the HTTP status
// code, so the body is decoded regardless of the code.
func (c *Client) Metadata(ctx context.Context, point model.Coordinate) (Metadata, error) {
	q := url.Values{}
	q.Set("location", point.String())
	q.Set("key", c.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(metadataPath, q), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("build request: %w", err)
	}

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency("metadata", dur.Seconds())

	var m Metadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	c.logger.Debug("metadata lookup done",
		"location", point.String(),
		"status", m.Status,
		"duration", dur.String())
	return m, nil
}

// Image downloads one directional tile of a panorama.
func (c *Client) Image(ctx context.Context, rq model.ImageRequest) ([]byte, error) {
	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", rq.Width, rq.Height))
	q.Set("pano", rq.PanoID)
	q.Set("heading", strconv.Itoa(rq.Heading))
	q.Set("fov", strconv.Itoa(rq.FOV))
	q.Set("key", c.key)
	q.Set("return_error_code", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(imageryPath, q), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency("imagery", dur.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("image fetched",
		"pano", rq.PanoID,
		"heading", rq.Heading,
		"bytes", len(b),
		"duration", dur.String())
	return b, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}
