package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/bytesource"
	"github.com/ledgerboc/tvcengine/internal/engine"
	"github.com/ledgerboc/tvcengine/pkg/types"
	"github.com/spf13/cobra"
)

var (
	addressPublicKeyHex string
	addressAccountIndex uint32
)

func init() {
	cmd := newAddressCmd()
	cmd.Flags().StringVar(&addressPublicKeyHex, "public-key", "", "64-char hex public key to splice into the dictionary")
	cmd.Flags().Uint32Var(&addressAccountIndex, "account-index", 0, "account index passed to the public key provider")
	_ = cmd.MarkFlagRequired("public-key")
	rootCmd.AddCommand(cmd)
}

func newAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address <tvc-file>",
		Short: "Derive a contract address from a state-init file",
		Long: `The address command parses a serialized state-init Bag-of-Cells,
locates its public-key dictionary leaf, splices in the given public key, and
prints the resulting contract address.

Example:
  tvcctl address contract.tvc --public-key 3b6a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddress(args)
		},
	}
	return cmd
}

func runAddress(args []string) error {
	if err := checkArgs(args, 1, "tvcctl address <tvc-file>"); err != nil {
		return err
	}
	path := args[0]

	keyBytes, err := hex.DecodeString(addressPublicKeyHex)
	if err != nil || len(keyBytes) != 32 {
		return fmt.Errorf("--public-key must be 64 hex characters (32 bytes)")
	}
	var publicKey [32]byte
	copy(publicKey[:], keyBytes)

	printVerbose("Opening tvc file: %s\n", path)
	data, cleanup, err := bytesource.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tvc file: %w", err)
	}
	defer cleanup()

	eng, err := engine.New(types.EngineOptions{
		PublicKeyProvider: staticPublicKeyProvider{key: publicKey},
	})
	if err != nil {
		return fmt.Errorf("failed to construct engine: %w", err)
	}

	result, err := eng.ComputeAddress(addressAccountIndex, data)
	if err != nil {
		return fmt.Errorf("failed to compute address: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"address": result.AddressHex,
		})
	}
	printInfo("%s\n", result.AddressHex)
	return nil
}

// staticPublicKeyProvider always returns the same key, ignoring accountIndex.
// A caller managing multiple accounts supplies its own types.PublicKeyProvider
// through the library API directly; this command only ever handles one key
// per invocation.
type staticPublicKeyProvider struct {
	key [32]byte
}

func (p staticPublicKeyProvider) PublicKey(accountIndex uint32) ([32]byte, error) {
	return p.key, nil
}
