package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/httpapi"
	"solana-token-gate/internal/pipeline"
	"solana-token-gate/internal/solana"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
}

// runLoop runs the supervisor and the status server until interrupted.
func runLoop(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	a, err := newApp(ctx, c, true)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.log.Zap()
	log.Info("token gate starting",
		zap.String("chain", a.cfg.ChainID),
		zap.Bool("dry_run", a.cfg.DryRun),
		zap.Duration("poll_interval", a.cfg.PollInterval))

	var server *httpapi.Server
	if a.cfg.HTTPAddr != "" {
		server = httpapi.NewServer(a.cfg.HTTPAddr, a.pipeline, a.executions, a.runStats, a.log.Named("http"))
		go func() {
			if err := server.Start(); err != nil {
				log.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	err = pipeline.NewSupervisor(a.pipeline, a.cfg.PollInterval, a.log.Named("supervisor")).Run(ctx)

	if server != nil {
		if serr := server.Shutdown(); serr != nil {
			log.Error("status server shutdown", zap.Error(serr))
		}
	}

	if errors.Is(err, context.Canceled) {
		log.Info("shutdown complete")
		return nil
	}
	return err
}

// scanOnce runs one iteration against in-memory stores.
func scanOnce(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	a, err := newApp(ctx, c, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.pipeline.RunOnce(ctx)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "fetched %d, passed filter %d, safe %d\n", len(result.Fetched), len(result.Passed), len(result.Safe))
	for i, v := range result.Verdicts {
		t := result.Passed[i]
		fmt.Fprintf(w, "%-44s  liq=%.0f mcap=%.0f change=%.1f%%  %s\n",
			t.Mint(), t.Liquidity, t.MarketCap, t.PriceChange, verdictText(v))
	}
	for _, rec := range result.Executions {
		fmt.Fprintf(w, "execution %s %s %s: %s\n", rec.ID, rec.Side, rec.Mint, rec.Status)
	}
	return nil
}

// checkMint prints the verdict for a single mint.
func checkMint(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: tokengate check <mint>", 2)
	}

	ctx, stop := signalContext(c)
	defer stop()

	a, err := newApp(ctx, c, false)
	if err != nil {
		return err
	}
	defer a.Close()

	v := a.evaluator.Evaluate(ctx, c.Args().First())
	fmt.Fprintf(c.App.Writer, "%s  %s\n", v.Mint, verdictText(v))
	return nil
}

// sellMint hands a full-balance sell to the guarded trader.
func sellMint(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: tokengate sell <mint>", 2)
	}

	ctx, stop := signalContext(c)
	defer stop()

	a, err := newApp(ctx, c, true)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.trader.Sell(ctx, c.Args().First())
	if rec != nil {
		fmt.Fprintf(c.App.Writer, "execution %s: %s amount=%g\n", rec.ID, rec.Status, rec.Amount)
	}
	return err
}

// printATA prints the associated token account; it needs no network.
func printATA(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: tokengate ata <wallet> <mint>", 2)
	}

	ata, err := solana.FindAssociatedTokenAddress(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, ata)
	return nil
}

func verdictText(v domain.RiskVerdict) string {
	if v.Safe() {
		return "SAFE"
	}
	if v.Detail != "" {
		return fmt.Sprintf("SCAM (%s: %s)", v.Criterion, v.Detail)
	}
	return fmt.Sprintf("SCAM (%s)", v.Criterion)
}
