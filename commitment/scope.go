package commitment

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	zkcommon "github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
)

// ScopeFromString encodes an application scope as the big-endian integer of
// its bytes. Scopes longer than one field element are rejected.
func ScopeFromString(scope string) (*big.Int, error) {
	if len(scope) > field.BytesPerElement {
		return nil, fmt.Errorf("%w: scope %q has %d bytes, max %d",
			zkcommon.ErrIntegerTooLarge, scope, len(scope), field.BytesPerElement)
	}
	return new(big.Int).SetBytes([]byte(scope)), nil
}

// UserIdentifierFromAddress encodes an Ethereum address
func UserIdentifierFromAddress(address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid ethereum address %q", address)
	}
	return common.HexToAddress(address).Big(), nil
}

// UserIdentifierFromUUID encodes a UUID as a 128 bit integer
func UserIdentifierFromUUID(id string) (*big.Int, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", id, err)
	}
	return new(big.Int).SetBytes(u[:]), nil
}

// ParseUserIdentifier accepts an Ethereum address or a UUID
func ParseUserIdentifier(id string) (*big.Int, error) {
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") {
		return UserIdentifierFromAddress(id)
	}
	return UserIdentifierFromUUID(id)
}
