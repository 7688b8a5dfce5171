package datastore

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

	"github.com/openmedicaid/nadac-mcp/config"
)

// ErrUpstream wraps any transport, timeout, or status failure from the
// datastore API. Callers surface it as a single tool-level error; there is
// no retry and no partial-result recovery.
var ErrUpstream = errors.New("datastore query failed")

// Client issues bounded read-only queries against one dataset on the
// data.medicaid.gov datastore download endpoint. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	datasetID  string
	userAgent  string
}

// NewClient constructs a Client for the configured dataset. The HTTP client
// enforces the single-attempt request timeout.
func NewClient(cfg config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		datasetID:  cfg.DatasetID,
		userAgent:  cfg.UserAgent,
	}
}

// QueryRows runs a JSON-format query and decodes the response into rows.
func (c *Client) QueryRows(ctx context.Context, req QueryRequest) ([]Row, error) {
	req.Format = FormatJSON
	body, err := c.download(ctx, req)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return rows, nil
}

// QueryCSV runs a CSV-format query and returns the raw body text verbatim.
func (c *Client) QueryCSV(ctx context.Context, req QueryRequest) (string, error) {
	req.Format = FormatCSV
	body, err := c.download(ctx, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) download(ctx context.Context, req QueryRequest) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downloadURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json, text/csv")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, snippet(body))
	}
	return body, nil
}

// downloadURL serializes the request into the indexed conditions[i][...]
// query-string form the datastore expects. The query string is assembled by
// hand rather than with url.Values so condition order survives encoding.
func (c *Client) downloadURL(req QueryRequest) string {
	key := func(i int, part string) string {
		return url.QueryEscape(fmt.Sprintf("conditions[%d][%s]", i, part))
	}

	var b strings.Builder
	for i, cond := range req.Conditions {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key(i, "property") + "=" + url.QueryEscape(cond.Property))
		b.WriteString("&" + key(i, "value") + "=" + url.QueryEscape(cond.Value))
		b.WriteString("&" + key(i, "operator") + "=" + url.QueryEscape(string(cond.Operator)))
	}

	format := req.Format
	if format == "" {
		format = FormatJSON
	}
	limit := req.Limit
	if limit <= 0 {
		limit = config.DefaultQueryLimit
	}
	if b.Len() > 0 {
		b.WriteByte('&')
	}
	b.WriteString("format=" + url.QueryEscape(string(format)))
	b.WriteString("&limit=" + strconv.Itoa(limit))

	return fmt.Sprintf("%s/%s/0/download?%s", c.baseURL, c.datasetID, b.String())
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
