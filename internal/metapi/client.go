// Package metapi is a client for the Metropolitan Museum of Art collection
// API. It returns raw records; converting them to catalog models and
// caching them is the services' job.
package metapi

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

	"github.com/google/uuid"

	"metcatalog/internal/errors"
	"metcatalog/internal/logging"
	"metcatalog/internal/retry"
)

// DefaultBaseURL is the public collection API root.
const DefaultBaseURL = "https://collectionapi.metmuseum.org/public/collection/v1"

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "metcatalog/1.0"
	maxBodyBytes   = 8 << 20
)

// Department is a raw department record.
type Department struct {
	DepartmentID int    `json:"departmentId"`
	DisplayName  string `json:"displayName"`
}

// Object is a raw object record. Only the fields the catalog reads are
// decoded.
type Object struct {
	ObjectID          int    `json:"objectID"`
	Title             string `json:"title"`
	ArtistDisplayName string `json:"artistDisplayName"`
	ArtistNationality string `json:"artistNationality"`
	ArtistBeginDate   string `json:"artistBeginDate"`
	ArtistEndDate     string `json:"artistEndDate"`
	Classification    string `json:"classification"`
	ObjectDate        string `json:"objectDate"`
	PrimaryImage      string `json:"primaryImage"`
	PrimaryImageSmall string `json:"primaryImageSmall"`
	Department        string `json:"department"`
}

type idList struct {
	Total     int   `json:"total"`
	ObjectIDs []int `json:"objectIDs"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   retry.Config
}

// Client talks to the collection API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
	logger  *slog.Logger
}

// New creates a client. Zero config fields fall back to defaults; a nil
// httpClient gets one with the configured timeout.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		retry:   cfg.Retry,
		logger:  logger,
	}
}

// Departments lists every department. Records without an id or a name are
// skipped.
func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	var body struct {
		Departments *[]Department `json:"departments"`
	}
	if err := c.get(ctx, "Departments", "/departments", nil, &body); err != nil {
		return nil, err
	}
	if body.Departments == nil {
		return nil, errors.WrapInvalid(errors.ErrIncompleteData, "metapi", "Departments", "response has no departments list")
	}

	out := make([]Department, 0, len(*body.Departments))
	for _, d := range *body.Departments {
		if d.DepartmentID <= 0 || strings.TrimSpace(d.DisplayName) == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Object fetches the record of one object.
func (c *Client) Object(ctx context.Context, id int) (*Object, error) {
	var obj struct {
		Object
		ObjectID *int    `json:"objectID"`
		Title    *string `json:"title"`
	}
	if err := c.get(ctx, "Object", "/objects/"+strconv.Itoa(id), nil, &obj); err != nil {
		return nil, err
	}
	if obj.ObjectID == nil || obj.Title == nil {
		return nil, errors.WrapInvalid(errors.ErrIncompleteData, "metapi", "Object",
			fmt.Sprintf("object %d is missing objectID or title", id))
	}
	if *obj.ObjectID != id {
		return nil, errors.WrapInvalid(errors.ErrIncompleteData, "metapi", "Object",
			fmt.Sprintf("object id mismatch: want %d, got %d", id, *obj.ObjectID))
	}

	out := obj.Object
	out.ObjectID = *obj.ObjectID
	out.Title = *obj.Title
	return &out, nil
}

// Search runs a free-text query, optionally restricted to a department.
// A blank query returns no ids without calling the API.
func (c *Client) Search(ctx context.Context, query string, departmentID *int) ([]int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []int{}, nil
	}
	params := url.Values{"q": {query}}
	if departmentID != nil {
		params.Set("departmentId", strconv.Itoa(*departmentID))
	}

	var body idList
	if err := c.get(ctx, "Search", "/search", params, &body); err != nil {
		return nil, err
	}
	return body.validIDs(), nil
}

// ObjectsByDepartment lists the object ids of a department.
func (c *Client) ObjectsByDepartment(ctx context.Context, deptID int) ([]int, error) {
	params := url.Values{"departmentIds": {strconv.Itoa(deptID)}}

	var body idList
	if err := c.get(ctx, "ObjectsByDepartment", "/objects", params, &body); err != nil {
		return nil, err
	}
	return body.validIDs(), nil
}

// validIDs drops non-positive ids. A null objectIDs yields an empty list.
func (l idList) validIDs() []int {
	out := make([]int, 0, len(l.ObjectIDs))
	if l.Total == 0 {
		return out
	}
	for _, id := range l.ObjectIDs {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	requestID := uuid.NewString()
	logger := c.logger.With(slog.String("op", op), slog.String("request_id", requestID))

	onRetry := func(attempt int, delay time.Duration, err error) {
		logger.Warn("collection api request failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
	}

	start := time.Now()
	err := retry.Do(ctx, c.retry, onRetry, func(ctx context.Context) error {
		return c.do(ctx, op, u, requestID, out)
	})
	if err != nil {
		logger.Error("collection api request failed", slog.String("url", u), slog.String("error", err.Error()))
		return err
	}
	logger.Info("collection api request", slog.String("url", u), slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, op, u, requestID string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WrapFatal(err, "metapi", op, "build request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WrapTransient(err, "metapi", op, "send request")
	}
	defer resp.Body.Close()

	if err := statusError(op, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrIncompleteData, err), "metapi", op, "decode response")
	}
	return nil
}

func statusError(op string, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return errors.WrapInvalid(errors.ErrNotFound, "metapi", op, "status 404")
	case status == http.StatusTooManyRequests:
		return errors.WrapTransient(errors.ErrRateLimited, "metapi", op, "status 429")
	case status >= 500:
		return errors.WrapTransient(errors.ErrUnavailable, "metapi", op, fmt.Sprintf("status %d", status))
	default:
		return errors.WrapInvalid(fmt.Errorf("unexpected status %d", status), "metapi", op, "request rejected")
	}
}
