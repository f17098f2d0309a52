package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mergerstool/mergers/internal/errors"
	"github.com/mergerstool/mergers/internal/logging"
)

const (
	defaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.1"
	defaultTimeout = 30 * time.Second
)

// HTTPClient implements Client over the platform's REST API. The PAT is
// carried as a static bearer token via an oauth2.Transport; request and
// response bodies are JSON. Listing endpoints return a {count, value}
// envelope.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

// NewHTTPClient builds the production Client. pat is the operator's
// personal access token. logger may be nil.
func NewHTTPClient(pat string, logger *logging.Logger) *HTTPClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: pat})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = defaultTimeout
	return &HTTPClient{baseURL: defaultBaseURL, http: hc, logger: logger}
}

// WithBaseURL overrides the platform host, e.g. for an on-premises server
// or a test server.
func (c *HTTPClient) WithBaseURL(base string) *HTTPClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// listEnvelope is the platform's standard collection response shape.
type listEnvelope[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

func (c *HTTPClient) GetPullRequests(ctx context.Context, org, project, repo, targetRef string, status PRStatus, top, skip int) ([]PullRequest, error) {
	q := url.Values{}
	q.Set("searchCriteria.targetRefName", "refs/heads/"+targetRef)
	q.Set("searchCriteria.status", string(status))
	q.Set("$top", strconv.Itoa(top))
	q.Set("$skip", strconv.Itoa(skip))

	endpoint := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/pullrequests?%s&api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), q.Encode(), apiVersion)

	var env listEnvelope[PullRequest]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

func (c *HTTPClient) GetPullRequest(ctx context.Context, org, project, repo string, id int) (PullRequest, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/pullrequests/%d?api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), id, apiVersion)

	var pr PullRequest
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &pr); err != nil {
		return PullRequest{}, err
	}
	return pr, nil
}

func (c *HTTPClient) CreateLabel(ctx context.Context, org, project, repo string, prID int, name string) error {
	endpoint := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/pullrequests/%d/labels?api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), prID, apiVersion)

	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPost, endpoint, body, "application/json", nil)
}

func (c *HTTPClient) ListPRWorkItems(ctx context.Context, org, project, repo string, prID int) ([]ResourceRef, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s/pullrequests/%d/workitems?api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), prID, apiVersion)

	var env listEnvelope[ResourceRef]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

func (c *HTTPClient) GetWorkItems(ctx context.Context, org, project string, ids []int, fields []string) ([]WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.Itoa(id)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(strIDs, ","))
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}

	endpoint := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems?%s&api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), q.Encode(), apiVersion)

	var env listEnvelope[wireWorkItem]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &env); err != nil {
		return nil, err
	}
	items := make([]WorkItem, len(env.Value))
	for i, w := range env.Value {
		items[i] = w.toWorkItem()
	}
	return items, nil
}

func (c *HTTPClient) UpdateWorkItem(ctx context.Context, org, project string, id int, patch []PatchOperation) (WorkItem, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems/%d?api-version=%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), id, apiVersion)

	var w wireWorkItem
	if err := c.do(ctx, http.MethodPatch, endpoint, patch, "application/json-patch+json", &w); err != nil {
		return WorkItem{}, err
	}
	return w.toWorkItem(), nil
}

// wireWorkItem is the platform's work-item wire shape: a flat id plus a
// fields bag the engine projects System.Title / System.State out of.
type wireWorkItem struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
}

func (w wireWorkItem) toWorkItem() WorkItem {
	item := WorkItem{ID: w.ID, Fields: make(map[string]string, len(w.Fields))}
	for k, v := range w.Fields {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "System.Title":
			item.Title = s
		case "System.State":
			item.State = s
		}
		item.Fields[k] = s
	}
	return item
}

// do issues one request and decodes the JSON response into out (skipped
// when out is nil). Non-2xx responses are mapped to PlatformError with the
// status code attached so retryability classification works.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.NewPlatformError("encode request body", err).WithEndpoint(endpoint)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.NewPlatformError("build request", err).WithEndpoint(endpoint)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug("platform request", "method", method, "endpoint", endpoint)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewPlatformError("request failed", err).WithEndpoint(endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewPlatformError(
			fmt.Sprintf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail))),
			errors.ErrPlatformFailure).
			WithEndpoint(endpoint).WithStatusCode(resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewPlatformError("decode response body", err).WithEndpoint(endpoint)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
