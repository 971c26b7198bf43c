// Package nightscout talks to the remote treatment store. The client is
// scoped to the single-record operations the bridge needs.
package nightscout

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/megusto0/tgintegration/internal"
)

var (
	// ErrNotFound means the store answered but holds no matching record.
	ErrNotFound = errors.New("nightscout: treatment not found")
	// ErrUpstream wraps any transport failure or non-2xx answer.
	ErrUpstream = errors.New("nightscout: upstream error")
)

type Client struct {
	baseURL    string
	token      string
	apiSecret  string
	httpClient *http.Client
	logger     internal.Logger
}

func NewClient(baseURL, token, apiSecret string, logger internal.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// FetchByClientID looks a treatment up by its client-assigned correlation
// id and returns the raw document.
func (c *Client) FetchByClientID(ctx context.Context, cid string) (map[string]any, error) {
	return c.fetchOne(ctx, "find[clientId]", cid)
}

// FetchByID looks a treatment up by its remote _id.
func (c *Client) FetchByID(ctx context.Context, id string) (map[string]any, error) {
	return c.fetchOne(ctx, "find[_id]", id)
}

func (c *Client) fetchOne(ctx context.Context, findKey, findValue string) (map[string]any, error) {
	query := url.Values{}
	query.Set(findKey, findValue)
	query.Set("count", "1")
	c.addTokenParam(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/treatments.json?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("nightscout: fetch failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("nightscout: fetch returned %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(payload) == 0 {
		return nil, ErrNotFound
	}
	return payload[0], nil
}

// FetchBetween returns every treatment whose created_at falls in
// [start, end), paging backwards through the store: each page is capped
// at pageSize and the next request lowers the upper bound to the oldest
// created_at seen. Records sharing that boundary timestamp can reappear
// on the next page and are deduplicated by _id.
func (c *Client) FetchBetween(ctx context.Context, start, end time.Time, pageSize int) ([]map[string]any, error) {
	if pageSize <= 0 {
		pageSize = 200
	}

	var out []map[string]any
	seen := map[string]bool{}
	upper := end.UTC().Format(time.RFC3339)
	upperKey := "find[created_at][$lt]"

	for {
		query := url.Values{}
		query.Set("find[created_at][$gte]", start.UTC().Format(time.RFC3339))
		query.Set(upperKey, upper)
		query.Set("count", strconv.Itoa(pageSize))
		c.addTokenParam(query)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/api/v1/treatments.json?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		c.addAuthHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("nightscout: range fetch failed: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		var page []map[string]any
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.logger.Errorf("nightscout: range fetch returned %d", resp.StatusCode)
			return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		oldest := ""
		for _, doc := range page {
			if id, _ := doc["_id"].(string); id != "" {
				if seen[id] {
					continue
				}
				seen[id] = true
			}
			out = append(out, doc)
			if created, _ := doc["created_at"].(string); created != "" {
				if oldest == "" || created < oldest {
					oldest = created
				}
			}
		}

		if len(page) < pageSize || oldest == "" || (upperKey == "find[created_at][$lte]" && oldest >= upper) {
			return out, nil
		}
		upper = oldest
		upperKey = "find[created_at][$lte]"
	}
}

// Update applies a sparse patch to the treatment. Deployments whose API
// rejects PUT on /treatments/{id} with 404 get the whole merged document
// re-submitted as a single-element array on the collection endpoint.
func (c *Client) Update(ctx context.Context, id string, patch, existing map[string]any) error {
	query := url.Values{}
	c.addTokenParam(query)

	status, err := c.putJSON(ctx, "/api/v1/treatments/"+url.PathEscape(id), query, patch)
	if err != nil {
		return err
	}
	if status >= 200 && status < 300 {
		return nil
	}
	if status != http.StatusNotFound || existing == nil {
		c.logger.Errorf("nightscout: update returned %d", status)
		return fmt.Errorf("%w: status %d", ErrUpstream, status)
	}

	merged := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	merged["_id"] = id

	status, err = c.putJSON(ctx, "/api/v1/treatments.json", query, []map[string]any{merged})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		c.logger.Errorf("nightscout: fallback update returned %d", status)
		return fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
	return nil
}

func (c *Client) putJSON(ctx context.Context, path string, query url.Values, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("nightscout: update failed: %v", err)
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) addTokenParam(query url.Values) {
	if c.token != "" {
		query.Set("token", c.token)
	}
}

func (c *Client) addAuthHeaders(req *http.Request) {
	if c.apiSecret != "" {
		digest := sha1.Sum([]byte(c.apiSecret))
		req.Header.Set("api-secret", hex.EncodeToString(digest[:]))
	}
}
