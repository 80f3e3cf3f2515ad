// Command tideshell runs the launcher without the embedded wails page. It
// shows the toolkit in a Chrome/Edge app window or the system browser, and
// builds without the wails toolchain.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/coastal-toolkit/tideshell/internal/bootstrap"
	"github.com/coastal-toolkit/tideshell/internal/config"
	"github.com/coastal-toolkit/tideshell/internal/version"
)

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

	if cfg.Backend == config.BackendWails {
		log.Printf("[Main] wails is not available in this build, using lorca")
		cfg.Backend = config.BackendLorca
	}

	if err := bootstrap.Run(cfg, bootstrap.Options{}); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
