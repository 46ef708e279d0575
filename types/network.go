package types

// Network identifies the Solana cluster payments are expected on.
type Network string

const (
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet"
	NetworkSolanaTestnet Network = "solana-testnet"
)

func (n Network) IsTestnet() bool {
	return n == NetworkSolanaDevnet || n == NetworkSolanaTestnet
}

func (n Network) String() string {
	return string(n)
}
