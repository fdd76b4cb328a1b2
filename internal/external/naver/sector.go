package naver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/korean"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/redis"
)

// ErrSectorNotFound is returned when the item page carries no industry link
var ErrSectorNotFound = errors.New("sector not found")

// 업종 링크 셀렉터 (동종업종비교 헤더 우선)
const (
	sectorSelector         = ".trade_compare h4 em a"
	sectorFallbackSelector = "a[href*='sise_group_detail.naver?type=upjong']"
)

// FetchSector scrapes the industry (업종) name of a stock from its item page
func (c *Client) FetchSector(ctx context.Context, stockCode string) (string, error) {
	params := url.Values{}
	params.Set("code", stockCode)

	body, err := c.fetch(ctx, c.baseURL, "/item/main.naver", params)
	if err != nil {
		return "", err
	}

	sector, err := parseSector(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", stockCode, err)
	}
	return sector, nil
}

// parseSector extracts the industry name. Naver serves EUC-KR pages.
func parseSector(body []byte) (string, error) {
	if !utf8.Valid(body) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("decode euc-kr failed: %w", err)
		}
		body = decoded
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html failed: %w", err)
	}

	for _, selector := range []string{sectorSelector, sectorFallbackSelector} {
		if name := strings.TrimSpace(doc.Find(selector).First().Text()); name != "" {
			return name, nil
		}
	}
	return "", ErrSectorNotFound
}

// SectorResolver is a contracts.SectorLookup backed by Naver industry pages.
// Lookups go memo → redis → scrape; anything unresolved falls back to a static table.
type SectorResolver struct {
	client      *Client
	cache       *redis.Cache
	fallback    contracts.SectorLookup
	logger      *logger.Logger
	concurrency int

	mu      sync.RWMutex
	sectors map[string]string
}

// NewSectorResolver creates a resolver. fallback may be nil.
func NewSectorResolver(client *Client, cache *redis.Cache, fallback contracts.SectorLookup, log *logger.Logger) *SectorResolver {
	return &SectorResolver{
		client:      client,
		cache:       cache,
		fallback:    fallback,
		logger:      log,
		concurrency: 4,
		sectors:     make(map[string]string),
	}
}

// Resolve looks up every id not yet known. Failed lookups are logged and left to the fallback;
// only context cancellation aborts the call.
func (r *SectorResolver) Resolve(ctx context.Context, ids []string) (int, error) {
	var pending []string
	r.mu.RLock()
	for _, id := range ids {
		if _, ok := r.sectors[id]; !ok {
			pending = append(pending, id)
		}
	}
	r.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var (
		mu       sync.Mutex
		resolved int
	)
	for _, id := range pending {
		g.Go(func() error {
			sector, err := r.lookup(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.WithError(err).WithField("stock_code", id).Warn("Sector lookup failed")
				return nil
			}

			r.mu.Lock()
			r.sectors[id] = sector
			r.mu.Unlock()

			mu.Lock()
			resolved++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return resolved, fmt.Errorf("sector resolve aborted: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"requested": len(ids),
		"fetched":   len(pending),
		"resolved":  resolved,
	}).Info("Sectors resolved")
	return resolved, nil
}

func (r *SectorResolver) lookup(ctx context.Context, id string) (string, error) {
	var sector string
	if r.cache == nil {
		return r.client.FetchSector(ctx, id)
	}
	_, err := r.cache.GetOrSet(ctx, redis.SectorKey(id), &sector, redis.TTLSector, func() (interface{}, error) {
		return r.client.FetchSector(ctx, id)
	})
	return sector, err
}

// SectorOf implements contracts.SectorLookup
func (r *SectorResolver) SectorOf(id string) string {
	r.mu.RLock()
	sector, ok := r.sectors[id]
	r.mu.RUnlock()
	if ok && sector != "" {
		return sector
	}
	if r.fallback != nil {
		if s := r.fallback.SectorOf(id); s != "" {
			return s
		}
	}
	return contracts.UnclassifiedSector
}
