// Package price looks up market prices for card entities and renders them as
// reply text.
package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/types"
)

// Engine resolves price facts for the first entity it knows.
type Engine interface {
	Lookup(ctx context.Context, entities []string) (*types.PriceFacts, error)
}

var _ Engine = (*HTTPEngine)(nil)

// HTTPConfig configures the HTTP price engine.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
	Log      logrus.FieldLogger
}

// DefaultHTTPConfig returns the defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{Timeout: 5 * time.Second, CacheTTL: 10 * time.Minute}
}

// HTTPEngine queries a JSON price service.
type HTTPEngine struct {
	client *resty.Client
	cache  *Cache
	log    logrus.FieldLogger
}

// NewHTTPEngine creates an engine for cfg.Endpoint.
func NewHTTPEngine(cfg HTTPConfig) (*HTTPEngine, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("price endpoint not set")
	}
	def := DefaultHTTPConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.Endpoint, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPEngine{client: client, cache: NewCache(cfg.CacheTTL), log: logging.Component(cfg.Log, "price")}, nil
}

type priceResponse struct {
	Entity      string          `json:"entity"`
	MarketPrice decimal.Decimal `json:"market_price"`
	Change7d    decimal.Decimal `json:"change_7d"`
	Currency    string          `json:"currency"`
	Sales       int             `json:"sales"`
}

// Lookup returns facts for the first entity the service knows, or nil. A
// failed entity is logged and skipped; the error is returned only when every
// entity failed.
func (e *HTTPEngine) Lookup(ctx context.Context, entities []string) (*types.PriceFacts, error) {
	var errs []error
	for _, entity := range entities {
		facts, err := e.lookupOne(ctx, entity)
		if err != nil {
			e.log.WithError(err).WithField("entity", entity).Warn("price lookup failed")
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if facts != nil {
			return facts, nil
		}
	}
	if len(errs) > 0 && len(errs) == len(entities) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func (e *HTTPEngine) lookupOne(ctx context.Context, entity string) (*types.PriceFacts, error) {
	if facts, ok := e.cache.Get(entity); ok {
		return facts, nil
	}

	var out priceResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParam("q", entity).
		SetResult(&out).
		Get("/prices")
	if err != nil {
		return nil, fmt.Errorf("price lookup %q: %w", entity, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		e.cache.Set(entity, nil)
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("price lookup %q: status %d", entity, resp.StatusCode())
	}

	facts := &types.PriceFacts{
		Entity:      out.Entity,
		MarketPrice: out.MarketPrice,
		Change7d:    out.Change7d,
		Currency:    out.Currency,
		Sales:       out.Sales,
	}
	if facts.Entity == "" {
		facts.Entity = entity
	}
	if facts.Currency == "" {
		facts.Currency = "USD"
	}
	if !facts.MarketPrice.IsPositive() {
		facts = nil
	}
	e.cache.Set(entity, facts)
	return facts, nil
}

var currencySymbols = map[string]string{"USD": "$", "EUR": "€", "GBP": "£"}

// Compose renders facts as a short reply. Nil facts give "".
func Compose(facts *types.PriceFacts) string {
	if facts == nil || !facts.MarketPrice.IsPositive() {
		return ""
	}
	sym, ok := currencySymbols[strings.ToUpper(facts.Currency)]
	amount := sym + facts.MarketPrice.StringFixed(2)
	if !ok {
		amount = facts.MarketPrice.StringFixed(2) + " " + strings.ToUpper(facts.Currency)
	}

	var trend string
	switch change := facts.Change7d.Round(1); {
	case change.IsPositive():
		trend = fmt.Sprintf("up %s%% over the past week", change.String())
	case change.IsNegative():
		trend = fmt.Sprintf("down %s%% over the past week", change.Abs().String())
	default:
		trend = "flat over the past week"
	}
	return fmt.Sprintf("%s has been trading around %s, %s.", titleCase(facts.Entity), amount, trend)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
