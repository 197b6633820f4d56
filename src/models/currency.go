package models

// CurrencyOption is a selectable currency code with its English name.
type CurrencyOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var SupportedCurrencies = []CurrencyOption{
	{"USD", "US Dollar"},
	{"EUR", "Euro"},
	{"THB", "Thai Baht"},
	{"RUB", "Russian Ruble"},
	{"GBP", "British Pound"},
	{"JPY", "Japanese Yen"},
	{"CNY", "Chinese Yuan"},
	{"KRW", "South Korean Won"},
	{"AUD", "Australian Dollar"},
	{"CAD", "Canadian Dollar"},
	{"CHF", "Swiss Franc"},
	{"SEK", "Swedish Krona"},
	{"NOK", "Norwegian Krone"},
	{"DKK", "Danish Krone"},
	{"PLN", "Polish Zloty"},
	{"CZK", "Czech Koruna"},
	{"HUF", "Hungarian Forint"},
	{"TRY", "Turkish Lira"},
	{"INR", "Indian Rupee"},
	{"IDR", "Indonesian Rupiah"},
	{"VND", "Vietnamese Dong"},
	{"MYR", "Malaysian Ringgit"},
	{"SGD", "Singapore Dollar"},
	{"HKD", "Hong Kong Dollar"},
	{"NZD", "New Zealand Dollar"},
	{"PHP", "Philippine Peso"},
	{"MXN", "Mexican Peso"},
	{"BRL", "Brazilian Real"},
	{"ZAR", "South African Rand"},
	{"ILS", "Israeli New Shekel"},
	{"AED", "UAE Dirham"},
	{"SAR", "Saudi Riyal"},
}

var supportedCurrencySet = func() map[string]bool {
	set := make(map[string]bool, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		set[c.Code] = true
	}
	return set
}()

// IsSupportedCurrency reports whether code is in SupportedCurrencies.
func IsSupportedCurrency(code string) bool {
	return supportedCurrencySet[code]
}
