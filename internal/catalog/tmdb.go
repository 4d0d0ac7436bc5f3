package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cinemarket/market-engine/internal/model"
)

const (
	// DefaultTMDBBaseURL is the TMDB v3 API root.
	DefaultTMDBBaseURL = "https://api.themoviedb.org/3"

	releaseDateLayout = "2006-01-02"
)

// TMDBConfig holds TMDB client settings.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// TMDBClient fetches movie attributes from the TMDB v3 API.
type TMDBClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewTMDBClient creates a TMDB catalog client.
func NewTMDBClient(cfg TMDBConfig) *TMDBClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultTMDBBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TMDBClient{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(base, "/"),
	}
}

type tmdbMovie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
	ReleaseDate string  `json:"release_date"`
	Budget      int64   `json:"budget"`
	Revenue     int64   `json:"revenue"`
	Genres      []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// GetMovieAttributes fetches /movie/{id}. A 404 maps to ErrNotFound.
func (c *TMDBClient) GetMovieAttributes(ctx context.Context, movieID int64) (model.MovieAttributes, error) {
	resource := fmt.Sprintf("%s/movie/%d", c.baseURL, movieID)
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	endpoint := resource + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.MovieAttributes{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.MovieAttributes{}, fmt.Errorf("fetching movie %d: %w", movieID, redactURL(err, resource))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.MovieAttributes{}, fmt.Errorf("%w: %d", ErrNotFound, movieID)
	}
	if resp.StatusCode != http.StatusOK {
		return model.MovieAttributes{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var m tmdbMovie
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return model.MovieAttributes{}, fmt.Errorf("decoding response: %w", err)
	}

	return m.toAttributes(), nil
}

// redactURL replaces the request URL carried by a transport error, which
// holds the API key in its query string.
func redactURL(err error, resource string) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: resource, Err: uerr.Err}
}

func (m tmdbMovie) toAttributes() model.MovieAttributes {
	attrs := model.MovieAttributes{
		ID:          m.ID,
		Title:       m.Title,
		PosterPath:  m.PosterPath,
		Popularity:  m.Popularity,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Budget:      m.Budget,
		Revenue:     m.Revenue,
	}
	if len(m.Genres) > 0 {
		attrs.GenreID = m.Genres[0].ID
	}
	// TMDB sends "" for unreleased titles; leave the date zero.
	if t, err := time.Parse(releaseDateLayout, m.ReleaseDate); err == nil {
		attrs.ReleaseDate = t
	}
	return attrs
}
