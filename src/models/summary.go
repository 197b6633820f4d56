package models

// Total is a currency-normalized sum. Complete is false while any
// contribution is still waiting on a conversion.
type Total struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Complete bool    `json:"complete"`
}

// Summary is the monthly financial picture of a scenario. Savings is a stock,
// not a flow, so it is reported but kept out of Balance.
type Summary struct {
	Currency string  `json:"currency,omitempty"`
	Income   float64 `json:"income"`
	Expense  float64 `json:"expense"`
	Goal     float64 `json:"goal"`
	Savings  float64 `json:"savings"`
	Balance  float64 `json:"balance"`
	Complete bool    `json:"complete"`
}

// CollectionStatus distinguishes never fetched, fetching, fetched and failed.
type CollectionStatus string

const (
	CollectionIdle    CollectionStatus = "idle"
	CollectionLoading CollectionStatus = "loading"
	CollectionLoaded  CollectionStatus = "loaded"
	CollectionFailed  CollectionStatus = "failed"
)

// CollectionState is a snapshot of a cached record collection.
type CollectionState[T any] struct {
	Status CollectionStatus `json:"state"`
	Items  []T              `json:"items"`
	Err    error            `json:"-"`
}
