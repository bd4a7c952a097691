package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"webstarter-backend/internal/config"
	"webstarter-backend/internal/model"
	"webstarter-backend/internal/utils"
	"webstarter-backend/pkg/logger"
)

var ErrPhotosNotConfigured = errors.New("Unsplash API not configured")

// PhotoAPIError is a non-2xx answer from Unsplash.
type PhotoAPIError struct {
	StatusCode int
	Errors     []string
}

func (e *PhotoAPIError) Error() string {
	detail := strings.Join(e.Errors, ", ")
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("Unsplash API error: %d - %s", e.StatusCode, detail)
}

type SearchPhotosParams struct {
	Query       string
	Page        int
	PerPage     int
	Orientation string
	Color       string
	OrderBy     string
}

type RandomPhotosParams struct {
	Query         string
	Count         int
	Orientation   string
	CollectionIDs []string
	Featured      bool
}

type ListPhotosParams struct {
	Page    int
	PerPage int
	OrderBy string
}

type PhotoService struct {
	accessKey string
	baseURL   string
	client    *http.Client
}

func NewPhotoService(cfg config.UnsplashConfig) *PhotoService {
	if cfg.AccessKey == "" {
		logger.Warnf("UNSPLASH_ACCESS_KEY not found, /api/unsplash will report not configured")
	}
	return &PhotoService{
		accessKey: cfg.AccessKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    utils.NewHTTPClient(cfg.Timeout),
	}
}

func (s *PhotoService) SearchPhotos(ctx context.Context, p SearchPhotosParams) (*model.PhotoSearchResult, error) {
	q := url.Values{}
	q.Set("query", p.Query)
	setInt(q, "page", p.Page)
	setInt(q, "per_page", p.PerPage)
	setString(q, "orientation", p.Orientation)
	setString(q, "color", p.Color)
	setString(q, "order_by", p.OrderBy)

	var out model.PhotoSearchResult
	if err := s.get(ctx, s.baseURL+"/search/photos", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRandomPhotos returns the raw body: one object, or an array when count is set.
func (s *PhotoService) GetRandomPhotos(ctx context.Context, p RandomPhotosParams) (json.RawMessage, error) {
	q := url.Values{}
	setString(q, "query", p.Query)
	setInt(q, "count", p.Count)
	setString(q, "orientation", p.Orientation)
	for _, id := range p.CollectionIDs {
		q.Add("collection_ids", id)
	}
	if p.Featured {
		q.Set("featured", "true")
	}

	var out json.RawMessage
	if err := s.get(ctx, s.baseURL+"/photos/random", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PhotoService) ListPhotos(ctx context.Context, p ListPhotosParams) ([]model.Photo, error) {
	var out []model.Photo
	if err := s.get(ctx, s.baseURL+"/photos", listQuery(p), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PhotoService) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	var out model.Photo
	if err := s.get(ctx, s.baseURL+"/photos/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PhotoService) GetUserPhotos(ctx context.Context, username string, p ListPhotosParams) ([]model.Photo, error) {
	var out []model.Photo
	if err := s.get(ctx, s.baseURL+"/users/"+url.PathEscape(username)+"/photos", listQuery(p), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TrackDownload pings a photo's download_location, which Unsplash requires
// whenever a photo is downloaded.
func (s *PhotoService) TrackDownload(ctx context.Context, downloadLocation string) (*model.DownloadTicket, error) {
	var out model.DownloadTicket
	if err := s.get(ctx, downloadLocation, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrackPhotoDownload tracks a download by photo id. The download location is
// always built from the configured API base.
func (s *PhotoService) TrackPhotoDownload(ctx context.Context, id string) (*model.DownloadTicket, error) {
	return s.TrackDownload(ctx, s.baseURL+"/photos/"+url.PathEscape(id)+"/download")
}

func (s *PhotoService) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if s.accessKey == "" {
		return ErrPhotosNotConfigured
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse unsplash url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Client-ID "+s.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("unsplash request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read unsplash response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &PhotoAPIError{StatusCode: resp.StatusCode}
		var payload struct {
			Errors []string `json:"errors"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			apiErr.Errors = []string{"Unknown error"}
		} else {
			apiErr.Errors = payload.Errors
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode unsplash response: %w", err)
	}
	return nil
}

func listQuery(p ListPhotosParams) url.Values {
	q := url.Values{}
	setInt(q, "page", p.Page)
	setInt(q, "per_page", p.PerPage)
	setString(q, "order_by", p.OrderBy)
	return q
}

func setInt(q url.Values, key string, v int) {
	if v != 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
