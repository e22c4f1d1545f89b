package bankid

import (
	"context"

	"idauth/internal/platform/httpclient"
)

// HTTPClient talks to the bank aggregation gateway.
type HTTPClient struct {
	http *httpclient.Client
}

func NewHTTPClient(http *httpclient.Client) *HTTPClient {
	return &HTTPClient{http: http}
}

type exchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

func (c *HTTPClient) Exchange(ctx context.Context, bank Bank, code, redirectURI string) (*UserInfo, error) {
	var info UserInfo
	if err := c.http.PostJSON(ctx, "/v1/banks/"+bank.ID+"/exchange", exchangeRequest{Code: code, RedirectURI: redirectURI}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
