package cmd

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/ap-atlas/core/devnet"
	"github.com/AvaProtocol/ap-atlas/pkg/logger"
)

var (
	devnetOption = struct {
		domain    domainOption
		listen    string
		solvers   int
		solverKey string
	}{}

	devnetCmd = &cobra.Command{
		Use:   "devnet",
		Short: "Serve an in-memory relay or operations backend",
		Long: `Serve a stand-in for the Atlas infrastructure. Every submitted user operation
is answered with --solvers signed solver operations and every bundle with a
bundle hash.`,
	}

	devnetRelayCmd = &cobra.Command{
		Use:   "relay",
		Short: "Serve the websocket auction relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			solvers, log, err := devnetSolvers()
			if err != nil {
				return err
			}
			r := devnet.NewRelay()
			solvers.Attach(r)
			log.Info("devnet relay listening", "addr", devnetOption.listen)
			return serve(cmd.Context(), devnetOption.listen, r)
		},
	}

	devnetBackendCmd = &cobra.Command{
		Use:   "backend",
		Short: "Serve the operations REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			solvers, log, err := devnetSolvers()
			if err != nil {
				return err
			}
			b := devnet.NewBackend()
			solvers.AttachBackend(b)
			log.Info("devnet backend listening", "addr", devnetOption.listen)
			return serve(cmd.Context(), devnetOption.listen, b.Handler())
		},
	}
)

func devnetSolvers() (*devnet.Solvers, sdklogging.Logger, error) {
	log, err := logger.NewLogger(sdklogging.Development)
	if err != nil {
		return nil, nil, err
	}
	domain, err := devnetOption.domain.domain()
	if err != nil {
		return nil, nil, err
	}

	var key *ecdsa.PrivateKey
	if devnetOption.solverKey != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(devnetOption.solverKey, "0x"))
	} else {
		key, err = crypto.GenerateKey()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("solver key: %w", err)
	}
	log.Info("devnet solver", "address", crypto.PubkeyToAddress(key.PublicKey).Hex(), "count", devnetOption.solvers)

	return devnet.NewSolvers(domain, key, devnetOption.solvers, log), log, nil
}

// serve runs handler on addr until ctx is done or the process is interrupted.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errC := make(chan error, 1)
	go func() { errC <- srv.ListenAndServe() }()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	devnetOption.domain.register(devnetRelayCmd)
	devnetOption.domain.register(devnetBackendCmd)
	for _, c := range []*cobra.Command{devnetRelayCmd, devnetBackendCmd} {
		c.Flags().StringVar(&devnetOption.listen, "listen", "127.0.0.1:4000", "address to listen on")
		c.Flags().IntVar(&devnetOption.solvers, "solvers", 2, "solver operations pushed per user operation")
		c.Flags().StringVar(&devnetOption.solverKey, "solver-key", "", "hex private key signing solver operations, random when empty")
	}
	devnetCmd.AddCommand(devnetRelayCmd, devnetBackendCmd)
	rootCmd.AddCommand(devnetCmd)
}
