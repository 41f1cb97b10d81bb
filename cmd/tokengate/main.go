// Package main is the token gate command: it discovers trending tokens,
// filters them, checks them for scam signals and hands survivors to the
// guarded trader.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tokengate",
		Usage: "Discover, filter and risk-check trending Solana tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rpc-url", Aliases: []string{"r"}, Usage: "Solana JSON-RPC endpoint"},
			&cli.StringFlag{Name: "chain-id", Aliases: []string{"c"}, Usage: "Chain identifier to keep from the feed"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log trade intents without submitting"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
			&cli.DurationFlag{Name: "poll-interval", Aliases: []string{"i"}, Usage: "Idle delay between iterations"},
			&cli.StringFlag{Name: "http-addr", Usage: "Status server address, empty to disable"},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the scan loop and the status server",
				Action: runLoop,
			},
			{
				Name:   "scan",
				Usage:  "Run a single iteration and print the survivors",
				Action: scanOnce,
			},
			{
				Name:      "check",
				Usage:     "Print the risk verdict for one mint",
				ArgsUsage: "<mint>",
				Action:    checkMint,
			},
			{
				Name:      "sell",
				Usage:     "Sell the wallet's whole balance of a mint",
				ArgsUsage: "<mint>",
				Action:    sellMint,
			},
			{
				Name:      "ata",
				Usage:     "Print the associated token account of a wallet and mint",
				ArgsUsage: "<wallet> <mint>",
				Action:    printATA,
			},
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
