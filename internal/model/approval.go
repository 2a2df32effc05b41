package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ApprovalRecord captures both allowance layers for one (token, spender) pair:
// the ERC-20 allowance granted to the delegation contract and the delegated
// allowance that contract grants to the spender.
type ApprovalRecord struct {
	Token               common.Address `json:"token"`
	Owner               common.Address `json:"owner"`
	Delegation          common.Address `json:"delegation"`
	Spender             common.Address `json:"spender"`
	ERC20Allowance      *big.Int       `json:"erc20_allowance"`
	DelegatedAmount     *big.Int       `json:"delegated_amount"`
	DelegatedExpiration uint64         `json:"delegated_expiration"`
	DelegatedNonce      uint64         `json:"delegated_nonce"`
}

// Granted reports whether both layers are non-zero and the delegated
// allowance has not expired at the given unix time.
func (r ApprovalRecord) Granted(now uint64) bool {
	if r.ERC20Allowance == nil || r.ERC20Allowance.Sign() == 0 {
		return false
	}
	if r.DelegatedAmount == nil || r.DelegatedAmount.Sign() == 0 {
		return false
	}
	return r.DelegatedExpiration > now
}
