package management

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/ratelimit"
)

// DefaultBaseURL is the management endpoint for Azure public cloud.
// Sovereign clouds pass a different baseURL to NewClient, per spec.md §6's
// "https://management.{cloud}/" note.
const DefaultBaseURL = "https://management.azure.com"

// Client is the authenticated REST client against the Azure management
// plane, per spec.md §4.6. Every call is gated through a Limiter so the
// engine never exceeds the subscription's ARM throttling budget.
type Client struct {
	http    *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

// NewClient builds a Client. limiter must not be nil.
func NewClient(httpClient *http.Client, limiter *ratelimit.Limiter) *Client {
	return &Client{http: httpClient, limiter: limiter, baseURL: DefaultBaseURL}
}

// WithBaseURL overrides the management endpoint, e.g. for Azure Government.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	if err := c.limiter.WaitUntilReady(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperrors.New(apperrors.KindInternal, "build management request failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.doJSON(req, out)
}

func (c *Client) post(ctx context.Context, token, path string, query url.Values, out any) error {
	if err := c.limiter.WaitUntilReady(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return apperrors.New(apperrors.KindInternal, "build management request failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.ContentLength = 0
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.New(apperrors.KindConnectionFailed, "management request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.New(apperrors.KindInternal, "read management response body failed", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.New(apperrors.KindInternal, "parse management response failed", err)
	}
	return nil
}

// classifyStatus maps an HTTP response status to the engine's error
// taxonomy, per spec.md §4.6.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.New(apperrors.KindQueueNotFound, "resource not found", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.New(apperrors.KindAuthenticationFailed, "management request unauthorized", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimitedf(0, "management API rate limited")
	case resp.StatusCode >= 500:
		return apperrors.New(apperrors.KindServiceUnavailable, fmt.Sprintf("management API returned %d", resp.StatusCode), nil)
	default:
		return apperrors.New(apperrors.KindInternal, fmt.Sprintf("unexpected management API status %d", resp.StatusCode), nil)
	}
}

// ListSubscriptions lists subscriptions visible to token.
func (c *Client) ListSubscriptions(ctx context.Context, token string) ([]Subscription, error) {
	var out listResponse[Subscription]
	query := url.Values{"api-version": {"2020-01-01"}}
	if err := c.get(ctx, token, "/subscriptions", query, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// ListResourceGroups lists resource groups within subscriptionID.
func (c *Client) ListResourceGroups(ctx context.Context, token, subscriptionID string) ([]ResourceGroup, error) {
	var out listResponse[ResourceGroup]
	query := url.Values{"api-version": {"2021-04-01"}}
	path := fmt.Sprintf("/subscriptions/%s/resourcegroups", url.PathEscape(subscriptionID))
	if err := c.get(ctx, token, path, query, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// ListNamespaces lists Service Bus namespaces within a resource group.
func (c *Client) ListNamespaces(ctx context.Context, token, subscriptionID, resourceGroup string) ([]Namespace, error) {
	var out listResponse[Namespace]
	query := url.Values{"api-version": {"2021-11-01"}}
	path := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ServiceBus/namespaces",
		url.PathEscape(subscriptionID), url.PathEscape(resourceGroup))
	if err := c.get(ctx, token, path, query, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetNamespaceConnectionString fetches the RootManageSharedAccessKey's
// primary connection string for the given namespace.
func (c *Client) GetNamespaceConnectionString(ctx context.Context, token, subscriptionID, resourceGroup, namespace string) (string, error) {
	var out authorizationRuleKeys
	query := url.Values{"api-version": {"2021-11-01"}}
	path := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ServiceBus/namespaces/%s/AuthorizationRules/RootManageSharedAccessKey/listKeys",
		url.PathEscape(subscriptionID), url.PathEscape(resourceGroup), url.PathEscape(namespace),
	)
	if err := c.post(ctx, token, path, query, &out); err != nil {
		return "", err
	}
	return out.PrimaryConnectionString, nil
}

// GetQueueCounts fetches active and dead-letter message counts for queue,
// per spec.md §4.6's get_queue_counts(ns, queue) (generalized here with
// the subscription/resource-group path segments the REST surface in §6
// actually requires).
func (c *Client) GetQueueCounts(ctx context.Context, token, subscriptionID, resourceGroup, namespace, queue string) (active, deadLetter int64, err error) {
	var out queueDescription
	query := url.Values{"api-version": {"2021-11-01"}}
	path := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ServiceBus/namespaces/%s/queues/%s",
		url.PathEscape(subscriptionID), url.PathEscape(resourceGroup), url.PathEscape(namespace), url.PathEscape(queue),
	)
	if err := c.get(ctx, token, path, query, &out); err != nil {
		return 0, 0, err
	}
	return out.Properties.CountDetails.ActiveMessageCount, out.Properties.CountDetails.DeadLetterMessageCount, nil
}
