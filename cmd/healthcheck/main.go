// Command healthcheck exits non-zero unless the gateway's gRPC health
// service reports SERVING. It is meant for container health probes.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/Yo-Self/yo-self.github.io-sub001/config"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/gateway/clients"
)

func main() {
	timeout := flag.Duration("timeout", 3*time.Second, "check timeout")
	flag.Parse()

	cfg := config.LoadConfig()
	addr := "localhost:" + cfg.Server.GRPCPort
	if flag.NArg() > 0 {
		addr = flag.Arg(0)
	}

	c, err := clients.NewGRPCClients(addr)
	if err != nil {
		log.Fatalf("Failed to create health client: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ok, err := c.IsServing(ctx, clients.HealthService)
	if err != nil {
		log.Printf("Health check failed: %v", err)
		os.Exit(1)
	}
	if !ok {
		log.Printf("%s is not serving", clients.HealthService)
		os.Exit(1)
	}
}
