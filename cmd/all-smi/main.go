package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/all-smi/all-smi/internal/app"
	"github.com/all-smi/all-smi/internal/config"
	"github.com/all-smi/all-smi/internal/log"
)

var (
	appName, gitTag, gitCommit, gitBranch string
)

func main() {
	var (
		showVersion = kingpin.Flag("version", "show version and exit").Bool()
		logLevel    = kingpin.Flag("log-level", "set log level: debug, info, warn, error").Default("info").Envar("ALL_SMI_LOG_LEVEL").String()
		configFile  = kingpin.Flag("config-file", "path to config file").Default("").Envar("ALL_SMI_CONFIG_FILE").String()

		apiCmd       = kingpin.Command("api", "scrape local hardware and expose a Prometheus endpoint")
		apiPort      = apiCmd.Flag("port", "port to listen on").Default("9090").Envar("ALL_SMI_PORT").Uint16()
		apiInterval  = apiCmd.Flag("interval", "seconds between scrapes").Default("3").Envar("ALL_SMI_INTERVAL").Uint()
		apiProcesses = apiCmd.Flag("processes", "include per-process device usage").Bool()

		viewCmd      = kingpin.Command("view", "render an aggregated view of local or remote hardware")
		viewHosts    = viewCmd.Flag("hosts", "remote API-mode hosts to poll").Strings()
		viewHostfile = viewCmd.Flag("hostfile", "file with one host per line").String()
		viewInterval = viewCmd.Flag("interval", "seconds between polls; defaults adapt to fleet size").Uint()
	)
	cmd := kingpin.Parse()
	log.SetLevel(*logLevel)

	if *showVersion {
		fmt.Printf("%s %s %s-%s\n", appName, gitTag, gitCommit, gitBranch)
		os.Exit(0)
	}
	app.Version = gitTag

	cfg, err := config.NewConfig(*configFile)
	if err != nil {
		log.Errorln("create config failed: ", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		listenSignals()
		cancel()
	}()

	switch cmd {
	case apiCmd.FullCommand():
		err = runAPI(ctx, cfg, *apiPort, *apiInterval, *apiProcesses)
	case viewCmd.FullCommand():
		err = runView(ctx, cfg, *viewHosts, *viewHostfile, *viewInterval)
	}
	if err != nil {
		log.Errorln("exit: ", err)
		os.Exit(1)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, port uint16, interval uint, processes bool) error {
	api := cfg.API
	api.Port = port
	if interval > 0 {
		api.ScrapeInterval = time.Duration(interval) * time.Second
	}
	api.IncludeProcesses = processes
	return app.RunAPI(ctx, api)
}

func runView(ctx context.Context, cfg *config.Config, hosts []string, hostfile string, interval uint) error {
	hosts = append(append([]string(nil), cfg.View.Hosts...), hosts...)
	if hostfile != "" {
		fromFile, err := loadHostfile(hostfile)
		if err != nil {
			// An explicitly provided hostfile that cannot be read is
			// one of the two fatal conditions.
			return err
		}
		hosts = append(hosts, fromFile...)
	}

	view := config.ViewConfig{Hosts: hosts, Interval: cfg.View.Interval}
	if interval > 0 {
		view.Interval = time.Duration(interval) * time.Second
	}

	if err := cfg.Fleet.Validate(); err != nil {
		return err
	}

	return app.RunView(ctx, view, cfg.Fleet, cfg.History, nil)
}

// loadHostfile reads a plaintext hostfile: one host per line, blank
// lines and '#' comments skipped, optional http(s):// prefix tolerated.
func loadHostfile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var hosts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	return hosts, scanner.Err()
}

func listenSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	log.Infof("got %s, shutting down", sig)
}
