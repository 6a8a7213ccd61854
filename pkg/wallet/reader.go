package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ReceiptReader fetches receipts without a signing key, for tracking
// transactions sent earlier
type ReceiptReader struct {
	clients map[int64]*ethclient.Client
}

// DialReceiptReader connects to every RPC URL
func DialReceiptReader(ctx context.Context, rpcURLs map[int64]string) (*ReceiptReader, error) {
	r := &ReceiptReader{clients: make(map[int64]*ethclient.Client, len(rpcURLs))}
	for chainID, url := range rpcURLs {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to connect to RPC endpoint for chain %d: %w", chainID, err)
		}
		r.clients[chainID] = client
	}
	return r, nil
}

// TransactionReceipt fetches a receipt on chainID
func (r *ReceiptReader) TransactionReceipt(ctx context.Context, chainID int64, hash common.Hash) (*gethtypes.Receipt, error) {
	client, ok := r.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d not configured", chainID)
	}
	return client.TransactionReceipt(ctx, hash)
}

// Close releases all connections
func (r *ReceiptReader) Close() {
	for _, c := range r.clients {
		c.Close()
	}
}
