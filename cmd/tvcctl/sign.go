package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/bytesource"
	"github.com/ledgerboc/tvcengine/internal/engine"
	"github.com/ledgerboc/tvcengine/pkg/types"
	"github.com/spf13/cobra"
)

var signSrcAddressHex string

func init() {
	cmd := newSignCmd()
	cmd.Flags().StringVar(&signSrcAddressHex, "src-address", "", "64-char hex contract address the message must originate from")
	_ = cmd.MarkFlagRequired("src-address")
	rootCmd.AddCommand(cmd)
}

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <message-file>",
		Short: "Prepare an outbound message's external-signing digest",
		Long: `The sign command parses a serialized two-cell message, checks that
its source address matches --src-address, and prints the SHA-256 digest an
external signer consumes along with the destination and amount it commits to.

Example:
  tvcctl sign transfer.boc --src-address 3b6a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(args)
		},
	}
	return cmd
}

func runSign(args []string) error {
	if err := checkArgs(args, 1, "tvcctl sign <message-file>"); err != nil {
		return err
	}
	path := args[0]

	addrBytes, err := hex.DecodeString(signSrcAddressHex)
	if err != nil || len(addrBytes) != 32 {
		return fmt.Errorf("--src-address must be 64 hex characters (32 bytes)")
	}
	var srcAddress [32]byte
	copy(srcAddress[:], addrBytes)

	printVerbose("Opening message file: %s\n", path)
	data, cleanup, err := bytesource.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open message file: %w", err)
	}
	defer cleanup()

	eng, err := engine.New(types.EngineOptions{})
	if err != nil {
		return fmt.Errorf("failed to construct engine: %w", err)
	}

	result, err := eng.PrepareToSign(data, srcAddress)
	if err != nil {
		return fmt.Errorf("failed to prepare message for signing: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"digest":      hex.EncodeToString(result.Digest[:]),
			"destination": result.DestinationString,
			"amount":      result.AmountString,
		})
	}
	printInfo("digest:      %s\n", hex.EncodeToString(result.Digest[:]))
	printInfo("destination: %s\n", result.DestinationString)
	printInfo("amount:      %s\n", result.AmountString)
	return nil
}
