package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/0xblckmrq/signatory-role/ports"
)

const balanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// SBTGate checks that a wallet holds at least one unit of a soulbound token.
// Read-only eligibility check against a JSON-RPC endpoint; no settlement.
type SBTGate struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
}

// NewSBTGate dials the RPC endpoint and prepares the balanceOf call
func NewSBTGate(rpcURL, contractAddr string) (ports.TokenGate, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token abi: %w", err)
	}

	return &SBTGate{
		client:   client,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
	}, nil
}

// Holds reports whether the wallet's token balance is nonzero
func (g *SBTGate) Holds(ctx context.Context, wallet string) (bool, error) {
	input, err := g.abi.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return false, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	output, err := g.client.CallContract(ctx, ethereum.CallMsg{
		To:   &g.contract,
		Data: input,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("balanceOf call failed: %w", err)
	}

	results, err := g.abi.Unpack("balanceOf", output)
	if err != nil {
		return false, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	if len(results) != 1 {
		return false, fmt.Errorf("unexpected balanceOf result arity: %d", len(results))
	}

	balance, ok := results[0].(*big.Int)
	if !ok {
		return false, fmt.Errorf("unexpected balanceOf result type: %T", results[0])
	}

	return balance.Sign() > 0, nil
}
