package domain

// BlockStamp pairs a block number with its timestamp (unix seconds).
type BlockStamp struct {
	Number    int64
	Timestamp int64
}
