package hwjson

// BlockHeightResult models the data from the blockheight command.
type BlockHeightResult struct {
	Height  uint64 `json:"height"`
	Time    int64  `json:"time"`
	ChainID string `json:"chainid"`
}

// BackupResult models the data from the backup command.
type BackupResult struct {
	Destination string `json:"destination"`
	Bytes       int64  `json:"bytes"`
}
