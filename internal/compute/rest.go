package compute

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"arena-backend/internal/config"
	"arena-backend/internal/constants"
	"arena-backend/internal/domain"
)

// RESTClient implements Client against the provider's zonal HTTP API.
type RESTClient struct {
	baseURL string
	zone    string
	apiKey  string
	client  *fasthttp.Client
}

func NewRESTClient(cfg *config.Config) *RESTClient {
	return &RESTClient{
		baseURL: cfg.ProviderBaseURL,
		zone:    cfg.ProviderZone,
		apiKey:  cfg.ProviderAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ProviderAPITimeout,
			WriteTimeout:        constants.ProviderAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *RESTClient) CreateInstance(ctx context.Context, req CreateInstanceRequest) (string, error) {
	url := fmt.Sprintf("%s/zones/%s/instances", c.baseURL, c.zone)
	op, err := doRequest[Operation](ctx, c, fasthttp.MethodPost, url, req)
	if err != nil {
		return "", err
	}
	if op.ID == "" {
		return "", domain.ErrMissingOperation
	}
	return op.ID, nil
}

func (c *RESTClient) GetOperation(ctx context.Context, operationID string) (*Operation, error) {
	url := fmt.Sprintf("%s/zones/%s/operations/%s", c.baseURL, c.zone, operationID)
	return doRequest[Operation](ctx, c, fasthttp.MethodGet, url, nil)
}

func (c *RESTClient) GetInstance(ctx context.Context, name string) (*Instance, error) {
	url := fmt.Sprintf("%s/zones/%s/instances/%s", c.baseURL, c.zone, name)
	return doRequest[Instance](ctx, c, fasthttp.MethodGet, url, nil)
}

func (c *RESTClient) DeleteInstance(ctx context.Context, name string) (string, error) {
	url := fmt.Sprintf("%s/zones/%s/instances/%s", c.baseURL, c.zone, name)
	op, err := doRequest[Operation](ctx, c, fasthttp.MethodDelete, url, nil)
	if err != nil {
		return "", err
	}
	if op.ID == "" {
		return "", domain.ErrMissingOperation
	}
	return op.ID, nil
}

func doRequest[T any](ctx context.Context, client *RESTClient, method, url string, body any) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+client.apiKey)

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("provider API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
