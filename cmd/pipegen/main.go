package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/simon020286/pipegen"
	"github.com/simon020286/pipegen/config"
	"github.com/simon020286/pipegen/internal/logging"
	"github.com/simon020286/pipegen/render"
	"github.com/simon020286/pipegen/runtime"
)

func main() {
	configPath := flag.String("config", "", "Path to the pipeline configuration (.yaml, .yml or .hcl)")
	format := flag.String("format", "yaml", "Template format: json or yaml")
	outPath := flag.String("out", "", "Write the template to this file instead of stdout")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	logger := logging.New(*logLevel, *logFormat, os.Stderr)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pipegen -config <file> [-format json|yaml] [-out <file>]")
		os.Exit(2)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration.", "path", *configPath, "error", err)
		os.Exit(1)
	}

	runtimes, err := runtime.NewDefaultRegistry()
	if err != nil {
		logger.Error("Failed to load runtimes.", "error", err)
		os.Exit(1)
	}

	res, err := pipegen.NewGenerator(runtimes, logger).Generate(cfg)
	if err != nil {
		logger.Error("Generation failed.", "error", err)
		os.Exit(1)
	}

	tmpl, err := render.Render(res)
	if err != nil {
		logger.Error("Rendering failed.", "error", err)
		os.Exit(1)
	}
	data, err := tmpl.Encode(*format)
	if err != nil {
		logger.Error("Encoding failed.", "error", err)
		os.Exit(1)
	}

	if *outPath == "" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		logger.Error("Failed to write template.", "path", *outPath, "error", err)
		os.Exit(1)
	}
	logger.Info("Template written.", "path", *outPath, "run_id", res.RunID)
}
