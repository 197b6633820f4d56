package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/username/scenariobudget/src/logger"
	"github.com/username/scenariobudget/src/models"
)

type rpcConversionRequest struct {
	Items      []models.ConversionItem `json:"p_items"`
	ToCurrency string                  `json:"p_to_currency"`
}

// rpcConversionGateway calls a convert_amount_bulk remote procedure that
// answers [{"converted_amount": n}] in request order.
type rpcConversionGateway struct {
	url    string
	apiKey string
	client *http.Client
}

func NewRPCConversionGateway(url, apiKey string, client *http.Client) ConversionGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &rpcConversionGateway{url: url, apiKey: apiKey, client: client}
}

func (g *rpcConversionGateway) ConvertBulk(ctx context.Context, items []models.ConversionItem, targetCurrency string) []models.ConvertedItem {
	if targetCurrency == "" || len(items) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	body, err := json.Marshal(rpcConversionRequest{Items: items, ToCurrency: targetCurrency})
	if err != nil {
		log.Warn("Currency conversion request encoding failed", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		log.Warn("Currency conversion request creation failed", "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("apikey", g.apiKey)
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn("Currency conversion error", "targetCurrency", targetCurrency, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn("Currency conversion service returned non-OK status", "status", resp.Status, "body", string(msg))
		return nil
	}

	var converted []models.ConvertedItem
	if err := json.NewDecoder(resp.Body).Decode(&converted); err != nil {
		log.Warn("Currency conversion response decoding failed", "error", err)
		return nil
	}
	if len(converted) != len(items) {
		log.Warn("Currency conversion response length mismatch", "requested", len(items), "received", len(converted))
		return nil
	}
	return converted
}

// RateConverter converts a single amount between two currencies.
type RateConverter interface {
	Convert(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error)
}

// rateConversionGateway converts each item with reference exchange rates.
type rateConversionGateway struct {
	rates RateConverter
	now   func() time.Time
}

func NewRateConversionGateway(rates RateConverter, now func() time.Time) ConversionGateway {
	if now == nil {
		now = time.Now
	}
	return &rateConversionGateway{rates: rates, now: now}
}

func (g *rateConversionGateway) ConvertBulk(ctx context.Context, items []models.ConversionItem, targetCurrency string) []models.ConvertedItem {
	if targetCurrency == "" || len(items) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)
	today := g.now()

	out := make([]models.ConvertedItem, len(items))
	failed := 0
	for i, item := range items {
		v, err := g.rates.Convert(ctx, item.Amount, item.Currency, targetCurrency, today)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			if err == nil {
				err = fmt.Errorf("non-finite result")
			}
			log.Warn("Currency conversion failed for item", "index", i, "currency", item.Currency, "targetCurrency", targetCurrency, "error", err)
			failed++
			continue
		}
		out[i].ConvertedAmount = &v
	}

	if failed == len(items) {
		return nil
	}
	return out
}
