// Package main runs the towns command line client.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	townscmd "github.com/louisbranch/covey.town/internal/cmd/towns"
)

func main() {
	cfg, err := townscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TOWNS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := townscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("%s: %v", cfg.Command, err)
	}
}
