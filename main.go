package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/coastal-toolkit/tideshell/internal/bootstrap"
	"github.com/coastal-toolkit/tideshell/internal/config"
	"github.com/coastal-toolkit/tideshell/internal/version"
)

//go:embed all:launcher
var assets embed.FS

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.ShowVersion {
		fmt.Println(version.Full())
		os.Exit(0)
	}

	launcherFS, err := fs.Sub(assets, "launcher")
	if err != nil {
		log.Fatalf("Failed to load launcher page: %v", err)
	}

	if err := bootstrap.Run(cfg, bootstrap.Options{Assets: launcherFS}); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
