package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/zkgov/zkvote/proposal"
	"github.com/zkgov/zkvote/service"
	"go.vocdoni.io/dvote/log"
)

func main() {
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 8080, "API port to bind")
	treeHeight := flag.Int("treeHeight", 32, "height of each proposal's ballot tree")
	numVoters := flag.Int("numVoters", 1024, "voter balances seeded per proposal")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)

	registry := proposal.NewRegistry(*treeHeight, *numVoters)
	apiService := service.NewAPI(registry, *host, *port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := apiService.Start(ctx); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}
	log.Infow("service started",
		"host", *host,
		"port", *port,
		"treeHeight", *treeHeight,
		"numVoters", *numVoters)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	apiService.Stop()
}
