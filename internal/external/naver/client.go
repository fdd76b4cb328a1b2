package naver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/aegis/pit/pkg/httputil"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// Default endpoints
const (
	DefaultBaseURL  = "https://finance.naver.com"
	DefaultChartURL = "https://fchart.stock.naver.com"
)

// Circuit breaker defaults
const (
	DefaultBreakerFailures = 5                // 연속 실패 시 차단
	DefaultBreakerTimeout  = 30 * time.Second // 차단 후 재시도까지 대기
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	chartURL   string
}

// NewClient creates a new Naver Finance client. Empty URLs fall back to the defaults.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		chartURL:   DefaultChartURL,
	}
	return c.WithBreaker(DefaultBreakerFailures, DefaultBreakerTimeout)
}

// WithBreaker replaces the circuit breaker. After failures consecutive errors
// every call fails fast until timeout has passed.
func (c *Client) WithBreaker(failures uint32, timeout time.Duration) *Client {
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "naver",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 호출 측 취소는 장애로 보지 않음
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return c
}

// WithChartURL overrides the chart API host (tests)
func (c *Client) WithChartURL(chartURL string) *Client {
	c.chartURL = strings.TrimRight(chartURL, "/")
	return c
}

// fetch GETs baseURL+path and returns the body
func (c *Client) fetch(ctx context.Context, base, path string, params url.Values) ([]byte, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.httpClient.GetBody(ctx, fullURL, map[string]string{
			"Referer": c.baseURL + "/",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("naver request failed: %w", err)
	}
	return body.([]byte), nil
}
