// mcserver serves the Minecraft Java handshake, status and login protocol.
//
// Usage:
//
//	mcserver [-config server.toml]
//	mcserver [-config server.toml] players [-n 20]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/gstoney/mcserver/config"
	"github.com/gstoney/mcserver/internal/logging"
	"github.com/gstoney/mcserver/server"
	"github.com/gstoney/mcserver/store"
)

func main() {
	configPath := flag.String("config", "server.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if flag.Arg(0) == "players" {
		if err := listPlayers(cfg, flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "players: %v\n", err)
			os.Exit(1)
		}
		return
	}

	closer, err := logging.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	opts := []server.Option{server.WithLogger(logging.Component("server"))}

	if cfg.Store.Path != "" {
		players, err := store.Open(cfg.Store.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("failed to open player store")
		}
		defer players.Close()
		opts = append(opts, server.WithPlayerRecorder(players))
		log.Info().Str("path", cfg.Store.Path).Msg("player store opened")
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}

// listPlayers prints the most recent logins recorded in the player store.
func listPlayers(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("players", flag.ExitOnError)
	limit := fs.Int("n", 20, "number of players to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("no player store configured (store.path)")
	}

	players, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer players.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recent, err := players.Recent(ctx, *limit)
	if err != nil {
		return err
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Name", "UUID", "Last Login", "First Login", "Logins"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, p := range recent {
		tw.Append([]string{
			p.Name,
			p.UUID.String(),
			p.LastLogin.Local().Format(time.DateTime),
			p.FirstLogin.Local().Format(time.DateTime),
			strconv.Itoa(p.Logins),
		})
	}
	tw.Render()
	return nil
}
