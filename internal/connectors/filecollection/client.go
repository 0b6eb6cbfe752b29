package filecollection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.CategoryResolver  = (*Client)(nil)
	_ driven.DestinationLister = (*Client)(nil)
	_ driven.Uploader          = (*Client)(nil)
)

const (
	// DefaultBaseURL is the destination service root.
	DefaultBaseURL = "https://files.betterinformatics.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second
)

// Client talks to the destination file-collection service.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a destination client authenticated with a bearer
// token.
func NewClient(ctx context.Context, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = DefaultTimeout

	return &Client{
		baseURL:    baseURL,
		http:       hc,
		maxRetries: MaxRetries,
		retryDelay: RetryDelay,
	}
}

// Resolve maps a course code to its destination category. A code the
// service does not know yields ErrUntrackedCode.
func (c *Client) Resolve(ctx context.Context, code string) (domain.Category, error) {
	u := c.baseURL + "/api/category/slugfromeuclidcode?code=" + url.QueryEscape(code)

	var body valueString
	if err := c.getJSON(ctx, u, &body); err != nil {
		if IsNotFound(err) {
			return domain.Category{}, fmt.Errorf("resolve %s: %w", code, domain.ErrUntrackedCode)
		}
		return domain.Category{}, err
	}

	return domain.Category{Slug: body.Value, Code: code}, nil
}

// ListItems enumerates a category's items, following Link headers
// until the listing is exhausted.
func (c *Client) ListItems(ctx context.Context, cat domain.Category) ([]domain.DestinationItem, error) {
	next := c.baseURL + "/api/category/listexams/" + url.PathEscape(cat.Slug) + "/"

	var items []domain.DestinationItem
	for next != "" {
		var body valueItems
		link, err := c.getJSONPage(ctx, next, &body)
		if err != nil {
			return nil, err
		}

		for _, it := range body.Value {
			items = append(items, domain.DestinationItem{
				CategorySlug: cat.Slug,
				Filename:     it.Filename,
				DisplayName:  it.DisplayName,
			})
		}
		next = link
	}

	logger.Debug("Category %s lists %d items", cat.Slug, len(items))
	return items, nil
}

// OpenItem streams an item's content. The service indirects through a
// short-lived content URL, so this is two requests.
func (c *Client) OpenItem(ctx context.Context, item domain.DestinationItem) (io.ReadCloser, error) {
	u := c.baseURL + "/api/exam/pdf/exam/" + url.PathEscape(item.Filename) + "/"

	var body valueString
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, body.Value, nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", item.Filename, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, URL: body.Value}
	}
	return resp.Body, nil
}

// Upload pushes a candidate into its category as a multipart form.
// Uploads are never retried: a timeout after the service accepted the
// form would duplicate the document.
func (c *Client) Upload(ctx context.Context, cand domain.Candidate) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("category", cand.Category.Slug); err != nil {
		return "", fmt.Errorf("write category field: %w", err)
	}
	if err := w.WriteField("displayname", cand.Label); err != nil {
		return "", fmt.Errorf("write displayname field: %w", err)
	}

	fw, err := w.CreateFormFile("file", cand.Exam.Code+".pdf")
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := fw.Write(cand.Content); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	u := c.baseURL + "/api/exam/upload/exam/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(msg), URL: u}
	}

	var body valueString
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Some deployments return an empty body on success.
		return "", nil
	}
	return body.Value, nil
}

// getJSON fetches a URL and decodes its JSON body, retrying transient
// failures with backoff.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	_, err := c.getJSONPage(ctx, u, out)
	return err
}

// getJSONPage is getJSON returning the response's next Link, if any.
func (c *Client) getJSONPage(ctx context.Context, u string, out any) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay << (attempt - 1)
			logger.Debug("Retrying %s in %s (attempt %d/%d): %v", u, delay, attempt, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		next, err := c.fetchJSON(ctx, u, out)
		if err == nil {
			return next, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !isRetryable(apiErr.StatusCode) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) fetchJSON(ctx context.Context, u string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(msg), URL: u}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("decode %s: %w", u, err)
	}
	return ParseNextLink(resp.Header.Get("Link")), nil
}

// Wire types. The service wraps payloads in a "value" envelope.

type valueString struct {
	Value string `json:"value"`
}

type valueItems struct {
	Value []listedItem `json:"value"`
}

type listedItem struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"displayname"`
}
