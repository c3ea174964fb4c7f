package tool

// 内置工具名称
const (
	NameForex         = "fx_rate"
	NameInterestRates = "interest_rates"
	NameWebSearch     = "web_search"
)
