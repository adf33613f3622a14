// Command mizan answers one Arabic legal question through the ensemble
// pipeline and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mizanlegal/mizan/internal/application"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		question   = flag.String("question", "", "Arabic legal question to answer (reads stdin when empty)")
		timeout    = flag.Duration("timeout", 5*time.Minute, "Overall deadline for the run")
	)
	flag.Parse()

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pipeline, err := application.BuildPipeline(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	q := *question
	if q == "" {
		q = readStdin()
	}
	if strings.TrimSpace(q) == "" {
		log.Fatal("No question provided: pass -question or pipe text on stdin")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	result, err := pipeline.Process(ctx, q)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

func readStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return string(data)
}
