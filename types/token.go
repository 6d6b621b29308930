package types

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/thrylos-labs/postoken/amount"
)

// Principal is an authenticated account identity. Whether a principal
// actually exists and who may act for it is decided by the host through
// the authorization boundary, not by this package.
type Principal string

func (p Principal) String() string { return string(p) }

// InterestTier is one entry of an annual interest schedule. Years is the
// span of whole years the rate applies for; Years == 0 marks an
// open-ended tier that covers all remaining time.
type InterestTier struct {
	Years        uint32       `cbor:"1,keyasint" json:"years"`
	InterestRate amount.Asset `cbor:"2,keyasint" json:"interest_rate"`
}

// TokenStats is the per-symbol registry row: circulating supply, the
// fixed supply cap, the issuing principal and the staking schedule.
// StakeStartTime == 0 means staking has not been configured.
type TokenStats struct {
	Supply          amount.Asset   `cbor:"1,keyasint" json:"supply"`
	MaxSupply       amount.Asset   `cbor:"2,keyasint" json:"max_supply"`
	Issuer          Principal      `cbor:"3,keyasint" json:"issuer"`
	MinCoinAge      uint32         `cbor:"4,keyasint" json:"min_coin_age"`
	MaxCoinAge      uint32         `cbor:"5,keyasint" json:"max_coin_age"`
	AnnualInterests []InterestTier `cbor:"6,keyasint,omitempty" json:"annual_interests"`
	StakeStartTime  int64          `cbor:"7,keyasint" json:"stake_start_time"`
}

func (st *TokenStats) Marshal() ([]byte, error) {
	return cbor.Marshal(st)
}

func (st *TokenStats) Unmarshal(data []byte) error {
	return cbor.Unmarshal(data, st)
}

// StakingConfigured reports whether setstakespec has been applied.
func (st *TokenStats) StakingConfigured() bool {
	return st.StakeStartTime != 0
}

// BalanceEntry is the per-(owner, symbol) current balance row.
type BalanceEntry struct {
	Owner   Principal    `cbor:"1,keyasint" json:"owner"`
	Balance amount.Asset `cbor:"2,keyasint" json:"balance"`
}

func (b *BalanceEntry) Marshal() ([]byte, error) {
	return cbor.Marshal(b)
}

func (b *BalanceEntry) Unmarshal(data []byte) error {
	return cbor.Unmarshal(data, b)
}

// DepositRecord is one timestamped batch of value aging on an owner's
// balance. Records are only ever created whole and destroyed whole; the
// consolidation rules in the ledger package replace them, never edit them.
type DepositRecord struct {
	ID       uint64       `cbor:"1,keyasint" json:"id"`
	Quantity amount.Asset `cbor:"2,keyasint" json:"quantity"`
	Time     int64        `cbor:"3,keyasint" json:"time"`
}

func (r *DepositRecord) Marshal() ([]byte, error) {
	return cbor.Marshal(r)
}

func (r *DepositRecord) Unmarshal(data []byte) error {
	return cbor.Unmarshal(data, r)
}
