package address

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// SolanaChainID is the chain id the quote API uses for Solana
const SolanaChainID int64 = 792703809

// IsValidEVM reports whether s is a 0x-prefixed 20 byte hex address. Mixed
// case input must carry a valid EIP-55 checksum.
func IsValidEVM(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 42 || !common.IsHexAddress(s) {
		return false
	}
	hexPart := s[2:]
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// Validate checks a recipient for chainID and returns it in canonical form:
// lowercase hex on EVM chains, base58 on Solana.
func Validate(chainID int64, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("address is required")
	}
	if chainID == SolanaChainID {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return "", fmt.Errorf("invalid solana address %q: %w", addr, err)
		}
		return pk.String(), nil
	}
	if !IsValidEVM(addr) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return strings.ToLower(addr), nil
}
