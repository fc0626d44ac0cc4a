package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	atlasconfig "github.com/AvaProtocol/ap-atlas/core/config"
	"github.com/AvaProtocol/ap-atlas/core/operation"
	"github.com/AvaProtocol/ap-atlas/core/sdk"
)

var (
	auctionOption = struct {
		hints   []string
		timeout time.Duration
		verbose bool
	}{}

	auctionCmd = &cobra.Command{
		Use:   "auction <file|->",
		Short: "Run an auction for a signed user operation",
		Long: `Submit a signed user operation, wait for the auction to close, sign the dApp
operation with dapp_signer_private_key and submit the bundle. Prints the bundle hash.

The user operation session key must be the dApp signer address or zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var userOp operation.UserOperation
			if err := json.Unmarshal(data, &userOp); err != nil {
				return fmt.Errorf("invalid user operation: %w", err)
			}

			cfg, err := atlasconfig.NewConfig(config)
			if err != nil {
				return err
			}
			if cfg.DAppSignerKey == nil {
				return fmt.Errorf("dapp_signer_private_key is required to run an auction")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), auctionOption.timeout)
			defer cancel()

			client, err := sdk.FromConfig(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			solverOps, err := client.SubmitUserOperation(ctx, &userOp, auctionOption.hints)
			if err != nil {
				return err
			}
			cfg.Logger.Info("solver operations collected", "count", len(solverOps))
			if auctionOption.verbose {
				for _, op := range solverOps {
					dump(cmd, op.Fields())
				}
			}

			dAppOp, err := client.CreateDAppOperation(ctx, &userOp, solverOps, cfg.Bundler)
			if err != nil {
				return err
			}
			hash, err := client.SubmitBundle(ctx, operation.NewBundle(&userOp, solverOps, dAppOp))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
			return nil
		},
	}
)

func init() {
	auctionCmd.Flags().StringSliceVar(&auctionOption.hints, "hint", nil, "address hint passed to solvers, repeatable")
	auctionCmd.Flags().DurationVar(&auctionOption.timeout, "timeout", time.Minute, "give up after this long")
	auctionCmd.Flags().BoolVarP(&auctionOption.verbose, "verbose", "v", false, "dump the collected solver operations")
	rootCmd.AddCommand(auctionCmd)
}
