package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"arbscan/internal/infrastructure/config"
	"arbscan/internal/infrastructure/logger"
	"arbscan/internal/infrastructure/svc"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	once := flag.String("once", "", "scan a single symbol (e.g. BTC/USDT) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service initialization failed")
	}
	defer sc.Close()

	scanCfg := sc.ScanConfig()

	if *once != "" {
		opps, err := sc.Scanner.Scan(ctx, *once, scanCfg.Venues, scanCfg)
		if err != nil {
			log.Fatal().Err(err).Str("symbol", *once).Msg("scan failed")
		}
		if len(opps) == 0 {
			// Nothing live right now; fall back to the last stored record.
			if last, err := sc.Scanner.Latest(ctx, *once); err == nil && last != nil {
				log.Info().Str("id", last.ID).Msg("no live opportunity, showing last stored")
				out, _ := json.MarshalIndent(last, "", "  ")
				fmt.Println(string(out))
				return
			}
			fmt.Println("[]")
			return
		}
		out, _ := json.MarshalIndent(opps, "", "  ")
		fmt.Println(string(out))
		return
	}

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(cfg.Symbols.List)).
		Strs("venues", scanCfg.Venues).
		Msg("arbscan started")

	if err := sc.Scanner.RunContinuous(ctx, scanCfg); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("continuous scan exited")
	}
}
