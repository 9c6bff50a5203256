package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crisramb665/FundChain/internal/campaign"
	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/config"
	"github.com/crisramb665/FundChain/internal/handler"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/crisramb665/FundChain/internal/logic"
	"github.com/crisramb665/FundChain/internal/monitor"
	"github.com/crisramb665/FundChain/internal/network"
	"github.com/crisramb665/FundChain/internal/pricefeed"
	"github.com/crisramb665/FundChain/internal/repository"
	"github.com/crisramb665/FundChain/internal/router"
	"github.com/crisramb665/FundChain/internal/scheduler"
	"github.com/crisramb665/FundChain/internal/session"
	"github.com/crisramb665/FundChain/internal/tx"
	"github.com/crisramb665/FundChain/internal/wallet"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, signer, closeWallet, err := openWallet(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open wallet: %v", err)
	}
	defer closeWallet()

	params := network.ParamsFromConfig(cfg.Network)
	guard := network.NewGuard(params, session.New(), provider)
	if provider != nil {
		if err := guard.Restore(ctx); err != nil {
			logger.Warn("Could not restore wallet session: %v", err)
		}
		go guard.Watch(ctx)
	}

	client := chain.NewClient(cfg.Network, signer)
	reader := campaign.NewStateReader(client)
	feed := pricefeed.New(cfg.PriceFeed)

	var (
		db       *gorm.DB
		journal  *logic.JournalLogic
		activity *logic.ActivityLogic
	)
	coordOpts := []tx.Option{
		tx.WithConfirmTimeout(cfg.Transaction.ConfirmTimeout),
		tx.WithMaxPledgeCheck(cfg.Transaction.PrecheckMaxPledge),
		tx.WithSubmittedHook(func(s tx.Submitted) {
			logger.Info("%s %s submitted by %s: %s", s.Operation, s.OperationID, s.Account, params.TxURL(s.TxHash))
		}),
	}
	if cfg.Database.Enabled {
		db, err = repository.Init(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize database: %v", err)
		}
		defer repository.Close(db)
		journal = logic.NewJournalLogic(db)
		activity = logic.NewActivityLogic(db)
		coordOpts = append(coordOpts, tx.WithRecorder(journal))
	}
	coord := tx.NewCoordinator(client, guard, reader, coordOpts...)

	tasks, err := scheduler.NewManager()
	if err != nil {
		logger.Fatal("%v", err)
	}
	registerJobs(tasks, cfg, feed, guard, client, activity)
	tasks.Start()
	defer tasks.Stop()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.Setup(router.Handlers{
		Network:      handler.NewNetworkHandler(guard),
		Campaign:     handler.NewCampaignHandler(reader, coord, guard, feed, activity),
		Price:        handler.NewPriceHandler(feed, params),
		Transactions: handler.NewTransactionHandler(journal),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting on port %s (%s, chain %d)", cfg.Server.Port, params.Name, params.ChainID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openWallet builds the signing backend for wallet.mode. Both returned
// interfaces are nil in "none" mode.
func openWallet(ctx context.Context, cfg *config.Config) (wallet.Provider, chain.Wallet, func(), error) {
	switch cfg.Wallet.Mode {
	case "key":
		p, err := wallet.NewKeyProvider(cfg.Wallet.PrivateKey, cfg.Network.ChainID)
		if err != nil {
			return nil, nil, nil, err
		}
		// A local key is authorized from the start.
		if _, err := p.RequestAccounts(ctx); err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Using local key wallet %s", p.Address().Hex())
		return p, p, func() {}, nil
	case "rpc":
		p, err := wallet.DialRPCProvider(ctx, cfg.Wallet.RPCURL)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Using remote wallet at %s", cfg.Wallet.RPCURL)
		return p, p, p.Close, nil
	}
	logger.Info("No wallet configured; running read-only")
	return nil, nil, func() {}, nil
}

func registerJobs(m *scheduler.Manager, cfg *config.Config, feed *pricefeed.Feed, guard *network.Guard, client *chain.Client, activity *logic.ActivityLogic) {
	jobs := []scheduler.Job{
		scheduler.NewPriceRefreshJob(feed, cfg.PriceFeed.RefreshInterval),
	}
	if guard.HasProvider() {
		jobs = append(jobs, scheduler.NewWalletSyncJob(guard, time.Duration(cfg.Task.WalletSyncSecs)*time.Second))
	}
	if activity != nil {
		indexer := monitor.NewEventMonitor(client, activity, cfg.Task.BatchSize)
		jobs = append(jobs, scheduler.NewActivityIndexJob(indexer, time.Duration(cfg.Task.Interval)*time.Second))
	}
	for _, job := range jobs {
		if err := m.Register(job); err != nil {
			logger.Error("%v", err)
		}
	}
}
