package remote

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
	"google.golang.org/api/googleapi"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A non-empty token is sent as a bearer
// token on every request.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient.Transport = &oauth2.Transport{Source: ts, Base: http.DefaultTransport}
	}

	return &Client{baseURL: u, httpClient: httpClient}, nil
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches key to every request made with the returned context
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func idempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Non-2xx responses are returned as *googleapi.Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	endpoint := c.baseURL.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := idempotencyKey(ctx); key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response of %s %s: %w", method, path, err)
	}
	return nil
}

// Resource is the REST surface of one entity collection, e.g. "stocks"/"stock"
type Resource[W Payload] struct {
	client     *Client
	collection string
	singular   string
}

func NewResource[W Payload](c *Client, collection, singular string) *Resource[W] {
	return &Resource[W]{client: c, collection: collection, singular: singular}
}

func NewBillingResource(c *Client) *Resource[Billing] {
	return NewResource[Billing](c, "sales", "sale")
}

func NewStockResource(c *Client) *Resource[Stock] {
	return NewResource[Stock](c, "stocks", "stock")
}

func NewCustomerResource(c *Client) *Resource[Customer] {
	return NewResource[Customer](c, "customers", "customer")
}

func NewTransactionResource(c *Client) *Resource[Transaction] {
	return NewResource[Transaction](c, "transactions", "transaction")
}

func NewBulkCreditPaymentResource(c *Client) *Resource[BulkCreditPayment] {
	return NewResource[BulkCreditPayment](c, "bulk-credit-payments", "bulk-credit-payment")
}

func (r *Resource[W]) base(org string) string {
	return "en/" + org + "/api/v1/data/"
}

// List fetches every record of the organization
func (r *Resource[W]) List(ctx context.Context, org string) ([]W, error) {
	var out []W
	if err := r.client.do(ctx, http.MethodGet, r.base(org)+r.collection+"/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIDs fetches the ids of every record of the organization
func (r *Resource[W]) ListIDs(ctx context.Context, org string) ([]string, error) {
	var out []string
	if err := r.client.do(ctx, http.MethodGet, r.base(org)+r.singular+"-ids/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListChangesSince fetches records modified after sinceMillis
func (r *Resource[W]) ListChangesSince(ctx context.Context, org string, sinceMillis int64) ([]W, error) {
	var out []W
	query := url.Values{"since": []string{strconv.FormatInt(sinceMillis, 10)}}
	if err := r.client.do(ctx, http.MethodGet, r.base(org)+r.singular+"-changes/", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[W]) Create(ctx context.Context, org string, w W) (W, error) {
	var out W
	err := r.client.do(ctx, http.MethodPost, r.base(org)+r.collection+"/create/", nil, w, &out)
	return out, err
}

func (r *Resource[W]) Update(ctx context.Context, org, id string, w W) (W, error) {
	var out W
	err := r.client.do(ctx, http.MethodPut, r.itemPath(org, id, "edit"), nil, w, &out)
	return out, err
}

func (r *Resource[W]) Delete(ctx context.Context, org, id string) (W, error) {
	var out W
	err := r.client.do(ctx, http.MethodDelete, r.itemPath(org, id, "delete"), nil, nil, &out)
	return out, err
}

// Action returns a call to PUT .../{id}/{action}/, e.g. "deliver" or "edit-quantity"
func (r *Resource[W]) Action(action string) func(ctx context.Context, org, id string, w W) (W, error) {
	return func(ctx context.Context, org, id string, w W) (W, error) {
		var out W
		err := r.client.do(ctx, http.MethodPut, r.itemPath(org, id, action), nil, w, &out)
		return out, err
	}
}

func (r *Resource[W]) itemPath(org, id, action string) string {
	return r.base(org) + r.collection + "/" + id + "/" + action + "/"
}
