package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/ap-atlas/core/chainconfig"
	"github.com/AvaProtocol/ap-atlas/core/operation"
)

type domainOption struct {
	name              string
	version           string
	chainID           uint64
	verifyingContract string
}

func (o *domainOption) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.name, "domain-name", chainconfig.DefaultDomainName, "EIP-712 domain name")
	cmd.Flags().StringVar(&o.version, "domain-version", "1.0", "EIP-712 domain version")
	cmd.Flags().Uint64Var(&o.chainID, "chain-id", 11155111, "chain id of the domain")
	cmd.Flags().StringVar(&o.verifyingContract, "verifying-contract", "", "AtlasVerification address")
	_ = cmd.MarkFlagRequired("verifying-contract")
}

func (o *domainOption) domain() (operation.Domain, error) {
	if !common.IsHexAddress(o.verifyingContract) {
		return operation.Domain{}, fmt.Errorf("invalid verifying contract %q", o.verifyingContract)
	}
	return operation.Domain{
		Name:              o.name,
		Version:           o.version,
		ChainID:           new(big.Int).SetUint64(o.chainID),
		VerifyingContract: common.HexToAddress(o.verifyingContract),
	}, nil
}

// readInput reads the file named by path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func dump(cmd *cobra.Command, v any) {
	printer := pp.New()
	printer.SetOutput(cmd.OutOrStdout())
	printer.SetColoringEnabled(false)
	printer.Println(v)
}

var (
	hashUserOpOption = struct {
		domain  domainOption
		trusted string
		verbose bool
	}{}

	hashUserOpCmd = &cobra.Command{
		Use:   "hash-userop <file|->",
		Short: "Compute the hash of a user operation",
		Long: `Read a user operation in its JSON wire form and print the hash solver and dApp
operations refer to. The trusted field subset is hashed when the call config sets
trustedOpHash, unless --trusted overrides it.`,
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
			domain, err := hashUserOpOption.domain.domain()
			if err != nil {
				return err
			}

			trusted := userOp.UsesTrustedOpHash()
			switch hashUserOpOption.trusted {
			case "":
			case "true":
				trusted = true
			case "false":
				trusted = false
			default:
				return fmt.Errorf("--trusted must be true or false")
			}

			hash, err := userOp.HashWithDomain(domain, trusted)
			if err != nil {
				return err
			}
			if hashUserOpOption.verbose {
				dump(cmd, userOp.Fields())
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
			return nil
		},
	}
)

var (
	callChainHashOption = struct {
		requirePreOps string
	}{}

	callChainHashCmd = &cobra.Command{
		Use:   "call-chain-hash <file|->",
		Short: "Compute the call chain hash of a bundle",
		Long: `Read {"userOperation": ..., "solverOperations": [...]} and print the call chain
hash a dApp operation commits to. The preOps call is included when the call config
sets requirePreOps, unless --require-preops overrides it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var in struct {
				UserOperation    *operation.UserOperation     `json:"userOperation"`
				SolverOperations []*operation.SolverOperation `json:"solverOperations"`
			}
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("invalid input: %w", err)
			}
			if in.UserOperation == nil {
				return fmt.Errorf("missing userOperation")
			}

			requirePreOps := in.UserOperation.RequiresPreOps()
			switch callChainHashOption.requirePreOps {
			case "":
			case "true":
				requirePreOps = true
			case "false":
				requirePreOps = false
			default:
				return fmt.Errorf("--require-preops must be true or false")
			}

			hash, err := operation.CallChainHash(in.UserOperation, in.SolverOperations, requirePreOps)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
			return nil
		},
	}
)

func init() {
	hashUserOpOption.domain.register(hashUserOpCmd)
	hashUserOpCmd.Flags().StringVar(&hashUserOpOption.trusted, "trusted", "", "force the trusted (true) or full (false) hash")
	hashUserOpCmd.Flags().BoolVarP(&hashUserOpOption.verbose, "verbose", "v", false, "dump the decoded fields")
	rootCmd.AddCommand(hashUserOpCmd)

	callChainHashCmd.Flags().StringVar(&callChainHashOption.requirePreOps, "require-preops", "", "force including (true) or skipping (false) the preOps call")
	rootCmd.AddCommand(callChainHashCmd)
}
