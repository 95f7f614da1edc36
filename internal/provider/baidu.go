package provider

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// BaiduBaseURL is the Baidu AI cloud API host.
const BaiduBaseURL = "https://aip.baidubce.com"

// BaiduTokenSource returns a cached access-token source for Baidu's OAuth
// client-credentials endpoint. Tokens are fetched lazily on first use and
// refreshed when they expire.
func BaiduTokenSource(httpClient *http.Client, baseURL, apiKey, secretKey string) oauth2.TokenSource {
	if baseURL == "" {
		baseURL = BaiduBaseURL
	}
	cc := &clientcredentials.Config{
		ClientID:     apiKey,
		ClientSecret: secretKey,
		TokenURL:     strings.TrimRight(baseURL, "/") + "/oauth/2.0/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.Background()
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	return cc.TokenSource(ctx)
}
