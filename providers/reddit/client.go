package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/identity"
	"github.com/goliatone/go-saved/transport"
)

// Client is bound to one access credential. Rebuilding the client is the
// only way to change credentials.
type Client struct {
	adapter    core.TransportAdapter
	apiBaseURL string
	timeout    time.Duration
	credential core.AccessCredential
	resolver   *identity.Resolver
}

func (c *Client) Me(ctx context.Context) (core.Identity, error) {
	if c == nil {
		return core.Identity{}, fmt.Errorf("reddit: client is nil")
	}
	return c.resolver.Resolve(ctx, c.credential.AccessToken)
}

func (c *Client) FetchSavedPage(ctx context.Context, user core.Identity, req core.PageRequest) (core.RawPage, error) {
	if c == nil {
		return core.RawPage{}, fmt.Errorf("reddit: client is nil")
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		return core.RawPage{}, fmt.Errorf("reddit: identity name is required")
	}

	endpoint := c.apiBaseURL + "/user/" + url.PathEscape(name) + "/saved"
	query := map[string]string{"raw_json": "1"}
	if req.Limit > 0 {
		query["limit"] = strconv.Itoa(req.Limit)
	}
	if cursor := strings.TrimSpace(req.Cursor); cursor != "" {
		query["after"] = cursor
	}

	res, err := c.adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    endpoint,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + c.credential.AccessToken,
		},
		Query:   query,
		Timeout: c.timeout,
	})
	if err != nil {
		return core.RawPage{}, err
	}
	if err := transport.CheckStatus(endpoint, res); err != nil {
		return core.RawPage{}, err
	}
	return decodeListing(res.Body)
}

var _ core.ClientHandle = (*Client)(nil)
