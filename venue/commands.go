package venue

// Default order parameters applied when a caller omits fields
const (
	DefaultContractType = "CALL"
	DefaultAmount       = float64(1)
	DefaultSymbol       = "R_100"
	DefaultDuration     = 5
	DefaultDurationUnit = "s"
	DefaultBasis        = "payout"
)

// AuthorizeRequest venue authorization handshake payload
type AuthorizeRequest struct {
	Authorize string `json:"authorize"`
}

// TicksSubscribeRequest venue market data subscribe payload
type TicksSubscribeRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
}

// NewTicksSubscribeRequest define a tick subscribe payload for a symbol
func NewTicksSubscribeRequest(symbol string) TicksSubscribeRequest {
	return TicksSubscribeRequest{Ticks: symbol, Subscribe: 1}
}

// ForgetRequest venue subscription teardown payload. The venue keys tick
// feeds by "ticks:<symbol>".
type ForgetRequest struct {
	Forget string `json:"forget"`
}

// NewForgetTicksRequest define a tick unsubscribe payload for a symbol
func NewForgetTicksRequest(symbol string) ForgetRequest {
	return ForgetRequest{Forget: "ticks:" + symbol}
}

// OrderSpec client provided order parameters. Zero valued fields take the
// documented defaults when converted into a BuyRequest.
type OrderSpec struct {
	ContractType string  `json:"contract_type"`
	Amount       float64 `json:"amount"`
	Symbol       string  `json:"symbol"`
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Basis        string  `json:"basis"`
}

// BuyParameters contract parameters within an order placement payload
type BuyParameters struct {
	ContractType string `json:"contract_type"`
	Symbol       string `json:"symbol"`
	Duration     int    `json:"duration"`
	DurationUnit string `json:"duration_unit"`
	Basis        string `json:"basis"`
}

// BuyRequest venue order placement payload
type BuyRequest struct {
	Buy        int           `json:"buy"`
	Price      float64       `json:"price"`
	Parameters BuyParameters `json:"parameters"`
}

// NewBuyRequest define an order placement payload, filling in defaults for
// any unspecified OrderSpec field
func NewBuyRequest(spec OrderSpec) BuyRequest {
	if spec.ContractType == "" {
		spec.ContractType = DefaultContractType
	}
	if spec.Amount == 0 {
		spec.Amount = DefaultAmount
	}
	if spec.Symbol == "" {
		spec.Symbol = DefaultSymbol
	}
	if spec.Duration == 0 {
		spec.Duration = DefaultDuration
	}
	if spec.DurationUnit == "" {
		spec.DurationUnit = DefaultDurationUnit
	}
	if spec.Basis == "" {
		spec.Basis = DefaultBasis
	}
	return BuyRequest{
		Buy:   1,
		Price: spec.Amount,
		Parameters: BuyParameters{
			ContractType: spec.ContractType,
			Symbol:       spec.Symbol,
			Duration:     spec.Duration,
			DurationUnit: spec.DurationUnit,
			Basis:        spec.Basis,
		},
	}
}
