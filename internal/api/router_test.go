package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/internal/api/handlers"
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/s0_data"
	"github.com/wonny/aegis/pit/internal/strategyconfig"
	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/metrics"
)

const momentumYAML = `
name: api_momentum
universe:
  market: KOSPI
rebalance:
  freq: M
factors:
  - id: mom
    type: price_momentum
    lookback: 20
signal:
  method: rank_sum
  weights:
    mom: 1
portfolio:
  method: top_n_equal
  n: 2
cost_model:
  fee_bps: 3
  slippage_bps: 5
backtest:
  start: "2023-03-01"
  end: "2023-06-30"
`

// writePanel writes a prices.csv where A > B > C by momentum
func writePanel(t *testing.T) string {
	t.Helper()
	rates := map[string]float64{"A": 0.002, "B": 0.001, "C": -0.001}

	var points []contracts.PricePoint
	for id, rate := range rates {
		i := 0
		for d := time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC); d.Before(time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)); d = d.AddDate(0, 0, 1) {
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			points = append(points, contracts.PricePoint{
				InstrumentID: id,
				Date:         d,
				Close:        100 * math.Pow(1+rate, float64(i)),
				Volume:       1e9,
			})
			i++
		}
	}

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, s0_data.PricesFile))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, s0_data.WritePrices(f, points))
	return dir
}

func newTestServer(t *testing.T, cfg RouterConfig) (*httptest.Server, *metrics.Recorder) {
	t.Helper()
	spec, err := strategyconfig.Parse([]byte(momentumYAML))
	require.NoError(t, err)

	log := logger.Nop()
	recorder := metrics.New()
	strategy, err := handlers.NewStrategyHandler(spec, s0_data.NewCSVSource(writePanel(t), log), handlers.Deps{
		Sectors:  portfolio.StaticSectors{},
		Priors:   portfolio.NewMemoryStore(),
		Recorder: recorder,
	}, log)
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(strategy, recorder, cfg, log))
	t.Cleanup(server.Close)
	return server, recorder
}

func getJSON(t *testing.T, method, url string, dest interface{}) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	var body map[string]interface{}
	resp := getJSON(t, http.MethodGet, server.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestGetStrategy(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	var body struct {
		ConfigHash string                   `json:"config_hash"`
		Spec       strategyconfig.Spec      `json:"spec"`
		Warnings   []strategyconfig.Warning `json:"warnings"`
	}
	resp := getJSON(t, http.MethodGet, server.URL+"/api/strategy", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.ConfigHash, 64)
	assert.Equal(t, "api_momentum", body.Spec.Name)
}

func TestGetSignals(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	var body struct {
		Date   string                       `json:"date"`
		Status contracts.Status             `json:"status"`
		Ranked []contracts.RankedInstrument `json:"ranked"`
	}
	resp := getJSON(t, http.MethodGet, server.URL+"/api/signals?date=2023-06-01", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2023-06-01", body.Date)
	assert.Equal(t, contracts.StatusOK, body.Status)
	require.Len(t, body.Ranked, 3)
	assert.Equal(t, "A", body.Ranked[0].InstrumentID)
	assert.Equal(t, "C", body.Ranked[2].InstrumentID)
}

func TestGetSignals_BadDate(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	var body map[string]string
	resp := getJSON(t, http.MethodGet, server.URL+"/api/signals?date=06/01/2023", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "YYYY-MM-DD")
}

func TestGetPortfolio(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	var body struct {
		Status   contracts.Status       `json:"status"`
		Weights  contracts.WeightVector `json:"weights"`
		Turnover float64                `json:"turnover"`
	}
	resp := getJSON(t, http.MethodGet, server.URL+"/api/portfolio?date=2023-06-01", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contracts.StatusOK, body.Status)
	assert.Equal(t, contracts.WeightVector{"A": 0.5, "B": 0.5}, body.Weights)
	assert.InDelta(t, 1.0, body.Turnover, 1e-9)
}

func TestRunBacktest(t *testing.T) {
	server, recorder := newTestServer(t, RouterConfig{})

	var body struct {
		Strategy   string                     `json:"strategy"`
		ConfigHash string                     `json:"config_hash"`
		Status     contracts.Status           `json:"status"`
		Rebalances []contracts.RebalanceEvent `json:"rebalances"`
	}
	resp := getJSON(t, http.MethodPost, server.URL+"/api/backtest?from=2023-03-01&to=2023-06-30", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"), "redis disabled")
	assert.Equal(t, "api_momentum", body.Strategy)
	assert.Len(t, body.ConfigHash, 64)
	assert.Equal(t, contracts.StatusOK, body.Status)
	assert.Len(t, body.Rebalances, 4)

	// metrics endpoint exposes the run
	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
	assert.NotNil(t, recorder.Registry())
}

func TestRunBacktest_MethodAndWindow(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	resp := getJSON(t, http.MethodGet, server.URL+"/api/backtest", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = getJSON(t, http.MethodPost, server.URL+"/api/backtest?from=2023-06-30&to=2023-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamBacktest(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{})

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/backtest?from=2023-03-01&to=2023-06-30"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var rebalances []contracts.RebalanceEvent
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Type == "report" {
			var report struct {
				Strategy string           `json:"strategy"`
				Status   contracts.Status `json:"status"`
			}
			require.NoError(t, json.Unmarshal(msg.Data, &report))
			assert.Equal(t, "api_momentum", report.Strategy)
			break
		}

		require.Equal(t, "rebalance", msg.Type)
		var event contracts.RebalanceEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		rebalances = append(rebalances, event)
	}

	require.Len(t, rebalances, 4)
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), rebalances[0].Date)
	for i := 1; i < len(rebalances); i++ {
		assert.True(t, rebalances[i].Date.After(rebalances[i-1].Date))
	}
}

func TestRateLimit(t *testing.T) {
	server, _ := newTestServer(t, RouterConfig{RateLimit: 0.001, Burst: 1})

	first := getJSON(t, http.MethodGet, server.URL+"/api/strategy", nil)
	second := getJSON(t, http.MethodGet, server.URL+"/api/strategy", nil)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	// health is outside the limited subrouter
	health := getJSON(t, http.MethodGet, server.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
