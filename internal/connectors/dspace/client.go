package dspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.SourceCatalog = (*Client)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// PageInterval is the minimum gap between discover page requests.
	// The archive sits behind an aggressive WAF; pages are paced well
	// below anything it could mistake for scraping.
	PageInterval = 15 * time.Second

	searchPath = "/server/api/discover/search/objects"
)

// Metadata keys used by the archive.
const (
	metaIdentifier = "dc.identifier"
	metaDateIssued = "dc.date.issued"
	metaTitle      = "dc.title"
)

// issuedFormats are the date layouts seen in dc.date.issued. Older
// records use day-first.
var issuedFormats = []string{"2006-01-02", "02-01-2006"}

// Client lists and downloads exam papers from a DSpace archive.
type Client struct {
	cfg    Config
	http   *http.Client
	pages  *rate.Limiter
}

// NewClient creates a catalog client. A nil httpClient gets a default
// with a 30s timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		cfg:   cfg.withDefaults(),
		http:  httpClient,
		pages: rate.NewLimiter(rate.Every(PageInterval), 1),
	}
}

// ListPage fetches one discover page of exams, newest first. The
// second return value is true on the last page. Items missing a course
// code, issue date, or downloadable bitstream are logged and skipped.
func (c *Client) ListPage(ctx context.Context, page int) ([]domain.Exam, bool, error) {
	if err := c.pages.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(page), nil)
	if err != nil {
		return nil, false, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("discover search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, &APIError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode search response: %w", err)
	}

	result := body.Embedded.SearchResult
	exams := make([]domain.Exam, 0, len(result.Embedded.Objects))
	for _, obj := range result.Embedded.Objects {
		exam, err := parseExam(obj.Embedded.IndexableObject)
		if err != nil {
			logger.Warn("Skipping malformed item %q: %v", obj.Embedded.IndexableObject.Name, err)
			continue
		}
		if c.cfg.CodePrefix != "" && !strings.HasPrefix(exam.Code, c.cfg.CodePrefix) {
			logger.Debug("Skipping %s: outside prefix %s", exam.Code, c.cfg.CodePrefix)
			continue
		}
		exams = append(exams, exam)
	}

	last := result.Page.Number+1 >= result.Page.TotalPages
	return exams, last, nil
}

// Open streams the exam's document.
func (c *Client) Open(ctx context.Context, exam domain.Exam) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exam.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", exam.Code, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, URL: exam.DownloadURL}
	}
	return resp.Body, nil
}

// searchURL builds the discover query for one page.
func (c *Client) searchURL(page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(c.cfg.PageSize))
	q.Set("sort", "dc.date.accessioned,DESC")
	q.Set("embed", "bundles/bitstreams")
	q.Set("f.author", c.cfg.School+",equals")
	q.Set("f.has_content_in_original_bundle", "true,equals")
	// Year filtering uses the dateIssued range facet with equal bounds.
	// The archive also exposes a datetemporal facet keyed by academic
	// year strings, but dateIssued matches the dc.date.issued metadata
	// the rest of the client parses.
	if c.cfg.AcademicYear != "" {
		q.Set("f.dateIssued.min", c.cfg.AcademicYear)
		q.Set("f.dateIssued.max", c.cfg.AcademicYear)
	}
	return c.cfg.BaseURL + searchPath + "?" + q.Encode()
}

// parseExam maps a discover item onto an exam.
func parseExam(it item) (domain.Exam, error) {
	code := it.metaValue(metaIdentifier)
	if code == "" {
		return domain.Exam{}, fmt.Errorf("missing %s", metaIdentifier)
	}

	title := it.metaValue(metaTitle)
	if title == "" {
		title = it.Name
	}

	rawDate := it.metaValue(metaDateIssued)
	issued, err := parseIssued(rawDate)
	if err != nil {
		return domain.Exam{}, err
	}

	href := it.originalBitstreamHref()
	if href == "" {
		return domain.Exam{}, ErrNoBitstream
	}

	return domain.Exam{
		Code:        code,
		Title:       title,
		Issued:      issued,
		DownloadURL: href,
	}, nil
}

func parseIssued(raw string) (time.Time, error) {
	for _, layout := range issuedFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", metaDateIssued, raw)
}

// Wire types for the discover response. Only the fields the catalog
// reads are declared.

type searchResponse struct {
	Embedded struct {
		SearchResult struct {
			Embedded struct {
				Objects []struct {
					Embedded struct {
						IndexableObject item `json:"indexableObject"`
					} `json:"_embedded"`
				} `json:"objects"`
			} `json:"_embedded"`
			Page pageInfo `json:"page"`
		} `json:"searchResult"`
	} `json:"_embedded"`
}

type pageInfo struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

type item struct {
	Name     string                     `json:"name"`
	Metadata map[string][]metadataValue `json:"metadata"`
	Embedded struct {
		Bundles struct {
			Embedded struct {
				Bundles []bundle `json:"bundles"`
			} `json:"_embedded"`
		} `json:"bundles"`
	} `json:"_embedded"`
}

type metadataValue struct {
	Value string `json:"value"`
}

type bundle struct {
	Name     string `json:"name"`
	Embedded struct {
		Bitstreams struct {
			Embedded struct {
				Bitstreams []bitstream `json:"bitstreams"`
			} `json:"_embedded"`
		} `json:"bitstreams"`
	} `json:"_embedded"`
}

type bitstream struct {
	Links struct {
		Content struct {
			Href string `json:"href"`
		} `json:"content"`
	} `json:"_links"`
}

// metaValue returns the first value for a metadata key, or "".
func (it item) metaValue(key string) string {
	values := it.Metadata[key]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}

// originalBitstreamHref returns the content link of the first
// bitstream in the ORIGINAL bundle, or "".
func (it item) originalBitstreamHref() string {
	for _, b := range it.Embedded.Bundles.Embedded.Bundles {
		if b.Name != "ORIGINAL" {
			continue
		}
		bs := b.Embedded.Bitstreams.Embedded.Bitstreams
		if len(bs) == 0 {
			return ""
		}
		return bs[0].Links.Content.Href
	}
	return ""
}
