package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sajinavi2006/julomvp-sub022/internal/config"
	"github.com/sajinavi2006/julomvp-sub022/internal/db"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/creditmatrix"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/eligibility"
	loandomain "github.com/sajinavi2006/julomvp-sub022/internal/domain/loan"
	"github.com/sajinavi2006/julomvp-sub022/internal/domain/maxfee"
	"github.com/sajinavi2006/julomvp-sub022/internal/http/handlers"
	"github.com/sajinavi2006/julomvp-sub022/internal/observability"
	postgresrepo "github.com/sajinavi2006/julomvp-sub022/internal/repository/postgres"
	"github.com/sajinavi2006/julomvp-sub022/internal/server"
)

// defaultTenureRanges caps offered durations per amount band until the
// operational setting overrides them.
var defaultTenureRanges = []loandomain.TenureRange{
	{MinAmount: 300_000, MaxAmount: 1_000_000, MaxDuration: 4},
	{MinAmount: 1_000_000, MaxAmount: 5_000_000, MaxDuration: 8},
}

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	gtlRepo := postgresrepo.NewGTLRepository(pool)
	fdcRepo := postgresrepo.NewFDCRepository(pool)
	featureRepo := postgresrepo.NewFeatureRepository(pool)
	matrixRepo := postgresrepo.NewCreditMatrixRepository(pool)
	genRepo := postgresrepo.NewGenerationRepository(pool)
	loanRepo := postgresrepo.NewLoanRepository(pool)
	accountRepo := postgresrepo.NewAccountRepository(pool)

	gtlCfg := eligibility.GTLConfig{
		InsideUtilizationThreshold: cfg.GTLInsideUtilizationThreshold,
		InsideLookback:             cfg.GTLInsideLookback,
		OutsideBScoreThreshold:     cfg.GTLOutsideBScoreThreshold,
		OutsideCooldown:            cfg.GTLOutsideCooldown,
		OutsideBypassDigits:        cfg.GTLOutsideBypassDigits,
	}
	// The GTL gates run first: their veto persists the lock and audit rows,
	// which must not be skipped when another gate would also fire.
	engine := eligibility.NewEngine(logger,
		eligibility.NewGTLInsideGate(gtlRepo, gtlRepo, gtlRepo, gtlCfg),
		eligibility.NewGTLOutsideGate(gtlRepo, fdcRepo, gtlCfg),
		eligibility.NewApplicationStatusGate(),
		eligibility.NewBankNameMismatchGate(),
		eligibility.NewProductLockGate(featureRepo),
		eligibility.NewEntryLevelLimitGate(featureRepo),
		eligibility.NewCustomerTierGate(featureRepo),
		eligibility.NewFraudBlockGate(),
		eligibility.NewQRISWhitelistGate(featureRepo),
	)
	resolver := creditmatrix.NewResolver(matrixRepo, genRepo, cfg.CreditMatrixV2Enabled)
	adjuster := maxfee.NewAdjuster(maxfee.Config{
		DailyMaxFeeRate: cfg.DailyMaxFeeRate,
		TaxRate:         cfg.FeeTaxRate,
		DayCountBase:    30,
	})
	paths := loandomain.NewPathChecker(cfg.StatusPathCheckOff, logger)
	loanService := loandomain.NewService(engine, resolver, adjuster, loanRepo, accountRepo, paths, logger)
	loanHandler := handlers.NewLoanHandler(loanService, defaultTenureRanges)

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:      pool,
		LoanHandler: loanHandler,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
