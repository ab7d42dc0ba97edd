package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
)

// HTTPSource reads scenes from a catalog API at GET {base}/collections/{id}/scenes.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a catalog client. It makes one request per call;
// retrying transient failures is left to the materializer.
func NewHTTPSource(baseURL string) *HTTPSource {
	transport := &http.Transport{
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  30 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

func (h *HTTPSource) scenesURL(collectionID string) string {
	return fmt.Sprintf("%s/collections/%s/scenes", h.baseURL, url.PathEscape(collectionID))
}

// Scenes fetches the collection. Network failures and 5xx responses are
// transient NetworkErrors, other 4xx responses are ValidationErrors, and a 404
// means the catalog has no such collection and yields no scenes.
func (h *HTTPSource) Scenes(ctx context.Context, collectionID string) ([]*raster.Image, error) {
	images, err := h.fetch(ctx, h.scenesURL(collectionID), collectionID)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"collection": collectionID,
			"transient":  apperrors.IsTransient(err),
		}).Warn("Scene catalog request failed")
		return nil, err
	}
	return images, nil
}

func (h *HTTPSource) fetch(ctx context.Context, target, collectionID string) ([]*raster.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid scene catalog URL", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "geoai-monitor/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("scene catalog unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeScenes(resp.Body, collectionID)
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, apperrors.NewValidationError(fmt.Sprintf("client error: status code %d", resp.StatusCode), nil)
	default:
		return nil, apperrors.NewNetworkError(fmt.Sprintf("server error: status code %d", resp.StatusCode), nil)
	}
}
