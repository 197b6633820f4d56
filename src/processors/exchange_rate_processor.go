package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

// PivotCurrency is the currency ECB reference rates are quoted against.
const PivotCurrency = "EUR"

// How many days back to look for a published rate (weekends, holidays).
const rateLookbackDays = 7

var errNoObservation = errors.New("no observation for date")

// ExchangeRateProcessor fetches ECB daily reference rates and converts
// amounts across currencies through the euro.
type ExchangeRateProcessor struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

func NewExchangeRateProcessor(baseURL string, client *http.Client) *ExchangeRateProcessor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExchangeRateProcessor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   cache.New(24*time.Hour, 48*time.Hour),
	}
}

// GetExchangeRate returns how many units of currency one euro buys on date.
// When no rate was published that day it walks back up to a week.
func (p *ExchangeRateProcessor) GetExchangeRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	if currency == PivotCurrency {
		return 1.0, nil
	}

	cacheKey := fmt.Sprintf("rate-%s-%s", currency, date.Format("2006-01-02"))
	if rate, found := p.cache.Get(cacheKey); found {
		return rate.(float64), nil
	}

	for i := 0; i < rateLookbackDays; i++ {
		dateStr := date.AddDate(0, 0, -i).Format("2006-01-02")

		rate, err := p.fetchRate(ctx, currency, dateStr)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			if errors.Is(err, errNoObservation) {
				logger.L.Debug("No exchange rate found for date, trying previous day", "currency", currency, "date", dateStr)
			} else {
				logger.L.Warn("ECB rate lookup failed", "currency", currency, "date", dateStr, "error", err)
			}
			continue
		}

		p.cache.Set(cacheKey, rate, cache.DefaultExpiration)
		return rate, nil
	}

	return 0, fmt.Errorf("exchange rate not found for %s on or before %s", currency, date.Format("2006-01-02"))
}

// Convert expresses amount in from as an amount in to using the rates of date.
func (p *ExchangeRateProcessor) Convert(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error) {
	if from == to {
		return amount, nil
	}
	fromRate, err := p.GetExchangeRate(ctx, from, date)
	if err != nil {
		return 0, err
	}
	toRate, err := p.GetExchangeRate(ctx, to, date)
	if err != nil {
		return 0, err
	}
	if fromRate == 0 {
		return 0, fmt.Errorf("zero exchange rate for %s", from)
	}

	converted, _ := decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(fromRate)).
		Mul(decimal.NewFromFloat(toRate)).
		Float64()
	return converted, nil
}

func (p *ExchangeRateProcessor) fetchRate(ctx context.Context, currency, dateStr string) (float64, error) {
	// Series key D.{CURRENCY}.EUR.SP00.A is the daily reference rate against the euro.
	url := fmt.Sprintf("%s/D.%s.EUR.SP00.A?startPeriod=%s&endPeriod=%s&format=jsondata",
		p.baseURL, currency, dateStr, dateStr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ECB API request failed: %w", err)
	}
	defer resp.Body.Close()

	// 404 means nothing was published that day.
	if resp.StatusCode == http.StatusNotFound {
		return 0, errNoObservation
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ECB API returned status %s", resp.Status)
	}

	var ecbData models.ECBResponse
	if err := json.NewDecoder(resp.Body).Decode(&ecbData); err != nil {
		return 0, fmt.Errorf("failed to decode ECB API response: %w", err)
	}
	return extractRateFromResponse(ecbData)
}

// extractRateFromResponse navigates the ECB JSON structure to find the rate.
func extractRateFromResponse(data models.ECBResponse) (float64, error) {
	if len(data.DataSets) == 0 {
		return 0, errNoObservation
	}

	// The series key is usually "0:0:0:0:0"; iterate to be safe.
	for _, seriesData := range data.DataSets[0].Series {
		if observations, ok := seriesData.Observations["0"]; ok && len(observations) > 0 {
			return observations[0], nil
		}
	}
	return 0, errNoObservation
}
