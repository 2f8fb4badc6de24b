package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/blockmarket/blockmarket/build"
)

var log = logging.Logger("main")

func main() {
	app := &cli.App{
		Name:    "blockmarket",
		Usage:   "Decentralized marketplace client",
		Version: build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to config file",
				Value:   "config.toml",
				EnvVars: []string{"BLOCKMARKET_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			runCmd,
			configCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}
