package universe

// seedTickers is the built-in last-resort universe: large-cap US names used
// when neither the live index membership nor the snapshot file is available.
var seedTickers = []string{
	"AAPL", "MSFT", "AMZN", "NVDA", "GOOGL", "GOOG", "META", "BRK-B", "JPM", "V",
	"UNH", "XOM", "LLY", "MA", "AVGO", "PG", "HD", "MRK", "COST", "KO",
	"PEP", "ABBV", "ADBE", "BAC", "CRM", "WMT", "NFLX", "MCD", "CSCO", "TMO",
	"PFE", "ABT", "AMD", "ACN", "CMCSA", "DHR", "LIN", "TXN", "WFC", "DIS",
	"AMGN", "VZ", "INTU", "QCOM", "INTC", "UPS", "PM", "RTX", "LOW", "HON",
	"NEE", "UNP", "SBUX", "ORCL", "CAT", "IBM", "GS", "SPGI", "MS", "CVX",
	"AMAT", "BLK", "DE", "GILD", "MDT", "LMT", "C", "T", "BA", "AXP",
	"BKNG", "TJX", "CI", "SYK", "ADP", "ZTS", "PLD", "ISRG", "MMC", "MO",
	"SCHW", "GE", "CB", "SO", "ADI", "PNC", "ELV", "DUK", "TMUS", "MU",
	"AON", "VRTX", "REGN", "BSX", "CL", "APD", "ITW", "SHW", "SNPS", "EOG",
}
