package store

// Storage prefices
const (
	StatsPrefix    = "st-"
	BalancePrefix  = "bal-"
	DepositPrefix  = "dr-"
	SequencePrefix = "seq-"
)
