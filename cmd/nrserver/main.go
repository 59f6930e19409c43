package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BwanaFr/picoreseau/internal/nanoreseau"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <base_path>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "base_path is the server root; it must contain an A/ folder; NR3.DAT is read from A/ or, failing that, B/.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	basePath := flag.Arg(0)

	srv := nanoreseau.NewServer(basePath)
	if err := srv.Init(); err != nil {
		log.Fatalf("server init failed: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived %v, shutting down...\n", sig)
		srv.Close()
		os.Exit(0)
	}()

	slog.Info("nanoreseau server running", "base_path", basePath)
	if err := srv.Run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
