package models

// ConversionItem is one entry of a bulk conversion request.
type ConversionItem struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ConvertedItem is the entry at the same index of a bulk conversion response.
// A nil ConvertedAmount means the service returned a malformed entry.
type ConvertedItem struct {
	ConvertedAmount *float64 `json:"converted_amount"`
}

// ConvertedAmountMap maps record ids to amounts in a target currency. Only
// records whose currency differs from the target get an entry; a missing
// entry means unknown, never zero.
type ConvertedAmountMap map[string]float64

// ResultStatus is the state of a cached derived value.
type ResultStatus string

const (
	ResultPending     ResultStatus = "pending"
	ResultResolved    ResultStatus = "resolved"
	ResultUnavailable ResultStatus = "unavailable"
)

// Result wraps a derived value with whether it is still being computed,
// computed, or could not be computed.
type Result[V any] struct {
	Status ResultStatus `json:"status"`
	Value  V            `json:"value"`
}

func Pending[V any]() Result[V]        { return Result[V]{Status: ResultPending} }
func Resolved[V any](v V) Result[V]    { return Result[V]{Status: ResultResolved, Value: v} }
func Unavailable[V any]() Result[V]    { return Result[V]{Status: ResultUnavailable} }
func (r Result[V]) IsPending() bool    { return r.Status == ResultPending }
func (r Result[V]) IsResolved() bool   { return r.Status == ResultResolved }

// ECBResponse is the subset of the ECB SDMX-JSON payload needed to read a
// single daily observation.
type ECBResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]float64 `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
}
