package checkout

// defaultCurrency is used when the shopper's location is unknown.
const defaultCurrency = "USD"

var countryToCurrency = map[string]string{
	"AT": "EUR",
	"AU": "AUD",
	"BE": "EUR",
	"CA": "CAD",
	"CH": "CHF",
	"DE": "EUR",
	"DK": "DKK",
	"ES": "EUR",
	"FR": "EUR",
	"GB": "GBP",
	"IE": "EUR",
	"IT": "EUR",
	"JP": "JPY",
	"NL": "EUR",
	"NO": "NOK",
	"NZ": "NZD",
	"SE": "SEK",
	"US": "USD",
}

// CurrencyForCountry resolves the charge currency from the shopper's selected
// or detected country.
func CurrencyForCountry(country string) string {
	currency, found := countryToCurrency[country]
	if !found {
		return defaultCurrency
	}

	return currency
}
