package mfapiModel

type SchemeMeta struct {
	FundHouse      string `json:"fund_house"`
	SchemeType     string `json:"scheme_type"`
	SchemeCategory string `json:"scheme_category"`
	SchemeCode     int    `json:"scheme_code"`
	SchemeName     string `json:"scheme_name"`
}

type NavData struct {
	Date string `json:"date"`
	Nav  string `json:"nav"`
}

type SchemeResponse struct {
	Meta   SchemeMeta `json:"meta"`
	Data   []NavData  `json:"data"`
	Status string     `json:"status"`
}

type RawHolding struct {
	Isin      string  `json:"isin"`
	Name      string  `json:"company_name"`
	WeightPct float64 `json:"corpus_percentage"`
	AsOfDate  string  `json:"as_of"`
}

type CompositionResponse struct {
	SchemeCode string       `json:"scheme_code"`
	Holdings   []RawHolding `json:"holdings"`
}

type TERResponse struct {
	SchemeCode    string  `json:"scheme_code"`
	SchemeName    string  `json:"scheme_name"`
	TerPct        float64 `json:"ter"`
	EffectiveDate string  `json:"effective_date"`
}

type PeerResponse struct {
	SchemeCode    string  `json:"scheme_code"`
	SchemeName    string  `json:"scheme_name"`
	Category      string  `json:"category"`
	CategoryAvg1Y float64 `json:"category_avg_1y"`
	CategoryAvg3Y float64 `json:"category_avg_3y"`
	PeerRank      int     `json:"peer_rank"`
}
