package main

import (
	"errors"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HerbHall/marketdesk/internal/admin"
	"github.com/HerbHall/marketdesk/internal/apiclient"
	"github.com/HerbHall/marketdesk/internal/resource"
)

// tokenSource prefers an explicit api.token over the token file.
func tokenSource() apiclient.TokenSource {
	if settings.API.Token != "" {
		return apiclient.NewStaticToken(settings.API.Token)
	}
	return apiclient.NewFileToken(settings.API.TokenFile)
}

func newClient(tokens apiclient.TokenSource) (*apiclient.Client, error) {
	opts := []apiclient.Option{
		apiclient.WithTimeout(settings.API.Timeout),
		apiclient.WithTokenSource(tokens),
		apiclient.WithRetries(settings.API.Retries, settings.API.RetryInterval),
		apiclient.WithLogger(logger.Named("api")),
	}
	if settings.API.RateLimit > 0 {
		opts = append(opts, apiclient.WithRateLimit(settings.API.RateLimit, settings.API.RateBurst))
	}
	return apiclient.New(settings.API.BaseURL, opts...)
}

func newHub() (*admin.Hub, apiclient.TokenSource, error) {
	tokens := tokenSource()
	client, err := newClient(tokens)
	if err != nil {
		return nil, nil, err
	}
	hub, err := admin.NewHub(client,
		admin.WithLogger(logger.Named("store")),
		admin.WithPageSize(settings.API.PageSize),
		admin.WithMetrics(resource.NewMetrics(prometheus.NewRegistry())),
	)
	if err != nil {
		return nil, nil, err
	}
	return hub, tokens, nil
}

// liveURL returns live.url, or the /api/live websocket of the API base URL.
func liveURL() (string, error) {
	if settings.Live.URL != "" {
		return settings.Live.URL, nil
	}
	u, err := url.Parse(settings.API.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.New("api.base_url must be http or https")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/live"
	return u.String(), nil
}
