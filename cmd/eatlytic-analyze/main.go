// Command eatlytic-analyze analyzes a single food photo and prints the
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/backend"
	"github.com/vbonduro/eatlytic/internal/config"
	"github.com/vbonduro/eatlytic/internal/logging"
	"github.com/vbonduro/eatlytic/internal/service"
)

func main() {
	imagePath := flag.String("image", "", "path to the food photo")
	mediaType := flag.String("type", "", "media type of the photo (sniffed when empty)")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: eatlytic-analyze -image path [-type media/type]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, "text", cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	requester, err := backend.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure analysis backend: %v", err)
	}
	defer func() { _ = backend.Close(requester) }()

	f, err := os.Open(*imagePath)
	if err != nil {
		log.Fatalf("failed to open image: %v", err)
	}
	defer func() { _ = f.Close() }()

	svc := service.NewAnalysisService(analysis.NewClient(requester, logger), nil, cfg.AnalysisBackend, logger)
	result, err := svc.Analyze(context.Background(), f, *mediaType, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}
