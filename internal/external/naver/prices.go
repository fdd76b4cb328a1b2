package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

var priceRowPattern = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

// FetchPrices fetches daily bars for a stock from the Naver chart API
// ⭐ SSOT: Naver 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, stockCode string, from, to time.Time) ([]contracts.PricePoint, error) {
	params := url.Values{}
	params.Set("symbol", stockCode)
	params.Set("requestType", "1")
	params.Set("startTime", from.Format("20060102"))
	params.Set("endTime", to.Format("20060102"))
	params.Set("timeframe", "day")

	body, err := c.fetch(ctx, c.chartURL, "/siseJson.naver", params)
	if err != nil {
		return nil, err
	}

	prices, err := parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}
	for i := range prices {
		prices[i].InstrumentID = stockCode
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(prices),
	}).Debug("Fetched prices")
	return prices, nil
}

// parsePriceResponse parses the chart API body (JS array literal with single quotes)
func parsePriceResponse(body string) ([]contracts.PricePoint, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData), nil
	}

	// JSON 실패 시 정규식 파싱
	return parsePriceRegex(body), nil
}

// parsePriceJSON parses rows of [date, open, high, low, close, volume]; row 0 is the header
func parsePriceJSON(rawData [][]interface{}) []contracts.PricePoint {
	var prices []contracts.PricePoint
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}

		closePrice := toFloat(row[4])
		if closePrice <= 0 {
			continue
		}

		prices = append(prices, contracts.PricePoint{
			Date:   tradeDate,
			Open:   toFloat(row[1]),
			High:   toFloat(row[2]),
			Low:    toFloat(row[3]),
			Close:  closePrice,
			Volume: toFloat(row[5]),
		})
	}
	return prices
}

// parsePriceRegex is the fallback for bodies that are not valid JSON
func parsePriceRegex(body string) []contracts.PricePoint {
	var prices []contracts.PricePoint
	for _, match := range priceRowPattern.FindAllStringSubmatch(body, -1) {
		tradeDate, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		values := make([]float64, 5)
		for i := range values {
			values[i], _ = strconv.ParseFloat(match[i+2], 64)
		}
		if values[3] <= 0 {
			continue
		}

		prices = append(prices, contracts.PricePoint{
			Date:   tradeDate,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}
	return prices
}

// toFloat converts JSON numbers and numeric strings
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		n, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		return n
	default:
		return 0
	}
}
