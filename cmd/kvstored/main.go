// kvstored is the single-node key-value store server (spec.md §6): it
// opens a Store against a data file and serves it over the Dispatcher's
// newline-delimited JSON TCP protocol until signaled to stop.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/agentkv/kvstored/internal/config"
	"github.com/agentkv/kvstored/internal/dispatch"
	"github.com/agentkv/kvstored/internal/kvstore"
	"github.com/agentkv/kvstored/internal/log"
	"github.com/agentkv/kvstored/pkg/fs"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("kvstored", flag.ContinueOnError)

	host := flags.String("host", "", "bind host (overrides config)")
	port := flags.Int("port", 0, "bind port (overrides config)")
	dataFile := flags.String("data-file", "", "journal/data file path (overrides config)")
	configPath := flags.String("config", "", "explicit config file path")
	saveConfig := flags.Bool("save-config", false, "write the resolved config to the project config file and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}

		fmt.Fprintf(os.Stderr, "kvstored: %v\n", err)

		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvstored: %v\n", err)

		return 1
	}

	overrides := config.Overrides{
		Host:     *host,
		HasHost:  flags.Changed("host"),
		Port:     *port,
		HasPort:  flags.Changed("port"),
		DataFile: *dataFile,
		HasData:  flags.Changed("data-file"),
	}

	cfg, _, err := config.Load(workDir, *configPath, overrides, os.Environ())
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvstored: %v\n", err)

		return 1
	}

	logger := log.Default("kvstored:")

	if *saveConfig {
		path := *configPath
		if path == "" {
			path = filepath.Join(workDir, config.FileName)
		}

		if err := config.Save(path, cfg); err != nil {
			logger.Error("save config", err)

			return 1
		}

		logger.Infof("wrote resolved config to %s", path)

		return 0
	}

	var storeOpts []kvstore.Option
	if cfg.Unreliable > 0 {
		storeOpts = append(storeOpts, kvstore.WithUnreliable(cfg.Unreliable))
	}

	store, err := kvstore.Open(fs.NewReal(), cfg.DataFile, storeOpts...)
	if err != nil {
		logger.Error("open store", err)

		return 1
	}
	defer store.Close()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	srv, err := dispatch.Listen(addr, store)
	if err != nil {
		logger.Error("listen", err)

		return 1
	}

	logger.Infof("listening on %s (data file %s)", srv.Addr(), cfg.DataFile)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	serveErrCh := make(chan error, 1)

	go func() {
		serveErrCh <- srv.Serve()
	}()

	select {
	case <-sigCh:
		logger.Infof("shutting down")
		srv.Shutdown()

		return 0
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("serve", err)

			return 1
		}

		return 0
	}
}
