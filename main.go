package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"momentum-core/internal/api"
	"momentum-core/internal/gateway"
	"momentum-core/internal/monitor"
	"momentum-core/internal/notify"
	"momentum-core/internal/ranking"
	"momentum-core/internal/recorder"
	"momentum-core/internal/scheduler"
	"momentum-core/internal/tradecalc"
	"momentum-core/pkg/config"
	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/bitget"
	"momentum-core/pkg/exchanges/bithumb"
	"momentum-core/pkg/exchanges/common"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("resolve timezone: %v", err)
	}
	tzTag := cfg.TimezoneTag()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var sink notify.Sink = notify.Nop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		sink = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, "")
	} else {
		log.Printf("notify: no telegram credentials, notifications disabled")
	}

	bithumbClient := bithumb.New(bithumb.Config{
		APIKey:    cfg.BithumbAPIKey,
		APISecret: cfg.BithumbAPISecret,
	})
	bitgetClient := bitget.New(bitget.Config{
		APIKey:     cfg.BitgetAPIKey,
		APISecret:  cfg.BitgetAPISecret,
		Passphrase: cfg.BitgetPassphrase,
	})

	rankers := map[common.Exchange]ranking.Provider{
		common.ExchangeBithumb: ranking.NewBithumb(bithumbClient),
		common.ExchangeBitget:  ranking.NewBitget(bitgetClient),
	}

	calc := tradecalc.New(map[common.Exchange]tradecalc.CandleSource{
		common.ExchangeBithumb: tradecalc.NewBithumbSource(bithumbClient),
		common.ExchangeBitget:  tradecalc.NewBitgetSource(bitgetClient),
	}, database, tzTag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTrading {
		strategies, err := scheduler.LoadStrategies(cfg.StrategyPath)
		if err != nil {
			log.Fatalf("load strategies: %v", err)
		}
		traders := map[common.Exchange]gateway.Trader{
			common.ExchangeBithumb: gateway.NewBithumb(bithumbClient, rankers[common.ExchangeBithumb]),
			common.ExchangeBitget:  gateway.NewBitget(bitgetClient, rankers[common.ExchangeBitget]),
		}
		engine, err := scheduler.NewEngine(strategies, traders, database, sink, loc, tzTag)
		if err != nil {
			log.Fatalf("build scheduler: %v", err)
		}
		engine.Start(ctx)
	} else {
		log.Printf("trading disabled, running record-only")
	}

	if cfg.EnableRecorder {
		recorder.New(database, calc, rankers, loc, tzTag, cfg.TopN).Start(ctx)
	}
	if cfg.EnableMonitor {
		monitor.New([]ranking.Provider{
			rankers[common.ExchangeBithumb],
			rankers[common.ExchangeBitget],
		}, sink, loc).Start(ctx)
	}

	server := api.NewServer(database, rankers)
	go func() {
		log.Printf("api listening on :%s", cfg.Port)
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutdown signal received, exiting")
}
