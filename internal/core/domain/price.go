package domain

// PricePoint is a USD price observed at a unix timestamp.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// BlockPrice is an interpolated USD price at a block's timestamp.
type BlockPrice struct {
	Block     int64   `json:"block"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}
