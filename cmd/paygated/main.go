// Command paygated serves a demo API whose endpoints are gated behind
// pay-per-call Solana payments. The recipient wallet is provisioned at
// startup; the server does not accept traffic until provisioning completes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warden-labs/paygate"
	"github.com/warden-labs/paygate/ledger"
	"github.com/warden-labs/paygate/logger"
	"github.com/warden-labs/paygate/metrics"
	"github.com/warden-labs/paygate/middleware"
	"github.com/warden-labs/paygate/types"
	"github.com/warden-labs/paygate/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "paygated: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewZap(cfg.LogLevel)

	mint, err := solana.PublicKeyFromBase58(cfg.Payment.Mint)
	if err != nil {
		return fmt.Errorf("invalid mint %q: %w", cfg.Payment.Mint, err)
	}
	network := types.Network(cfg.Payment.Network)

	rpcClient := rpc.New(cfg.RPCURL)

	// One-time blocking initialization barrier: no traffic is accepted until
	// the recipient identity exists.
	provCtx, cancel := context.WithTimeout(context.Background(), cfg.provisionTimeout())
	identity, err := wallet.Provision(provCtx, rpcClient, mint, network, log)
	cancel()
	if err != nil {
		return fmt.Errorf("provision recipient: %w", err)
	}

	requirement := identity.Requirement(
		mint,
		cfg.Payment.PriceBaseUnits,
		cfg.Payment.Decimals,
		network,
		cfg.Payment.Message,
	)

	store := ledger.NewStore()

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.Metrics {
		recorder = metrics.NewPrometheus(nil)
	}

	gate, err := paygate.New(requirement, rpcClient,
		paygate.WithLogger(log),
		paygate.WithMetrics(recorder),
		paygate.WithLedger(store),
		paygate.WithCommitment(types.Commitment(cfg.Settlement.Commitment)),
		paygate.WithTimeout(cfg.confirmTimeout()),
		paygate.WithPollInterval(cfg.pollInterval()),
	)
	if err != nil {
		return fmt.Errorf("build gate: %w", err)
	}

	gated := middleware.New(gate,
		middleware.WithLogger(log),
		middleware.WithMetrics(recorder),
	)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "paygated is running"})
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"network": requirement.Network.String(),
		})
	})

	mux.Handle("/api/access", gated(accessHandler(store)))

	// Confirmation-lookup path for callers that hit a ConfirmationTimeout:
	// re-present the signature instead of rebroadcasting.
	mux.HandleFunc("POST /api/payment/confirm", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Signature string `json:"signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Signature == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "signature is required"})
			return
		}
		receipt, err := gate.Confirm(r.Context(), body.Signature)
		if err != nil {
			middleware.WriteRejection(w, err)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	})

	mux.HandleFunc("GET /api/reputation", func(w http.ResponseWriter, r *http.Request) {
		walletAddr := r.URL.Query().Get("wallet")
		if walletAddr == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet is required"})
			return
		}
		rec, ok := store.Lookup(walletAddr)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reputation record"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
	mux.HandleFunc("GET /api/reputation/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Leaderboard())
	})
	mux.HandleFunc("POST /api/reputation/credit", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Wallet string `json:"wallet"`
			Delta  int64  `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Wallet == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet is required"})
			return
		}
		writeJSON(w, http.StatusOK, store.Credit(body.Wallet, body.Delta))
	})

	if cfg.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			"addr", cfg.Listen,
			"network", requirement.Network.String(),
			"price", requirement.Amount)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// accessHandler serves the paid endpoint. Each verified payment credits the
// paying wallet's reputation score.
func accessHandler(store *ledger.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receipt, _ := middleware.ReceiptFromContext(r.Context())
		if receipt.Payer != "" {
			store.Credit(receipt.Payer, 1)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     "Payment verified successfully",
			"txSignature": receipt.Signature,
			"level":       receipt.Level,
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
