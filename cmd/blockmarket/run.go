package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/node"
	"github.com/blockmarket/blockmarket/node/config"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Start the marketplace client",
	Action: func(cctx *cli.Context) error {
		cfg, err := config.FromFile(cctx.String("config"))
		if err != nil {
			return xerrors.Errorf("loading config: %w", err)
		}

		ctx, cancel := context.WithCancel(cctx.Context)
		defer cancel()

		n, err := node.New(ctx, cfg)
		if err != nil {
			return err
		}
		n.Start(ctx)

		notices, unsub := n.Notifier.Sub()
		defer unsub()
		go func() {
			for notice := range notices {
				log.Warnw("notice", "system", notice.System, "message", notice.Message)
			}
		}()

		sigCh := make(chan os.Signal, 2)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		log.Infow("shutting down", "signal", sig.String())

		return n.Stop()
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "Print the default config",
	Action: func(cctx *cli.Context) error {
		raw, err := config.Encode(config.DefaultNode())
		if err != nil {
			return err
		}
		fmt.Fprint(cctx.App.Writer, string(raw))
		return nil
	},
}
