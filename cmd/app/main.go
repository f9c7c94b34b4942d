package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"stock-engine/internal/adapters/cli"
	"stock-engine/internal/adapters/repl"
	"stock-engine/internal/app"
	"stock-engine/internal/config"
	"stock-engine/internal/core"
	"stock-engine/internal/db"
	"stock-engine/internal/logging"

	"go.uber.org/zap"
)

// With arguments, runs one command and exits. Without, starts the REPL.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.IsDevelopment())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	svc := app.NewAppService(
		core.NewCatalogService(pool),
		core.NewInventoryService(pool),
		core.NewInvoiceService(pool, core.NewDocumentService(pool)),
		core.NewProductionService(pool),
		core.NewUserService(pool),
		core.NewWarehouseAccessChecker(pool),
	)

	if len(os.Args) < 2 {
		repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout)
		return
	}

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout, os.Stdin); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
