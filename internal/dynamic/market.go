package dynamic

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// MarketFetcher reads a Finnhub quote for every configured symbol.
type MarketFetcher struct {
	apiKey  string
	symbols []string
	opts    HTTPOptions
}

func NewMarketFetcher(apiKey string, symbols []string, opts HTTPOptions) *MarketFetcher {
	return &MarketFetcher{
		apiKey:  apiKey,
		symbols: append([]string(nil), symbols...),
		// Finnhub's free tier allows 60 calls a minute.
		opts: opts.withDefaults(finnhubBaseURL, time.Second),
	}
}

func (f *MarketFetcher) Category() string { return CategoryMarket }

type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

// Fetch returns {updated_at, quotes[]}. Symbols without a current price are
// skipped; it fails only when no symbol produced a quote.
func (f *MarketFetcher) Fetch(ctx context.Context) (knowledge.Value, error) {
	if f.apiKey == "" {
		return knowledge.Null(), fmt.Errorf("dynamic: finnhub api key not configured")
	}
	if len(f.symbols) == 0 {
		return knowledge.Null(), fmt.Errorf("dynamic: no market symbols configured")
	}

	var (
		quotes []knowledge.Value
		errs   []error
	)
	for _, symbol := range f.symbols {
		q := url.Values{}
		q.Set("symbol", symbol)
		q.Set("token", f.apiKey)

		var quote finnhubQuote
		if err := getJSON(ctx, f.opts, "/quote", q, nil, &quote); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if quote.Current <= 0 {
			continue
		}
		quotes = append(quotes, knowledge.Map(
			knowledge.F("symbol", knowledge.String(symbol)),
			knowledge.F("price", knowledge.Number(quote.Current)),
			knowledge.F("change", knowledge.Number(quote.Change)),
			knowledge.F("change_percent", knowledge.Number(quote.ChangePercent)),
			knowledge.F("high", knowledge.Number(quote.High)),
			knowledge.F("low", knowledge.Number(quote.Low)),
			knowledge.F("previous_close", knowledge.Number(quote.PrevClose)),
		))
	}
	if len(quotes) == 0 {
		if len(errs) == 0 {
			errs = append(errs, errors.New("no symbol returned a price"))
		}
		return knowledge.Null(), fmt.Errorf("dynamic: market quotes: %w", errors.Join(errs...))
	}

	return knowledge.Map(
		knowledge.F("updated_at", timestamp(f.opts.Now)),
		knowledge.F("quotes", knowledge.List(quotes...)),
	), nil
}
