package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/arashi-logworks/grokline/internal/config"
	"github.com/arashi-logworks/grokline/internal/dlq"
	"github.com/arashi-logworks/grokline/internal/logging"
	"github.com/arashi-logworks/grokline/internal/parser"
	"github.com/arashi-logworks/grokline/internal/tailer"
	"github.com/arashi-logworks/grokline/pkg/types"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	version    = "0.3.0"
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobal(logger)

	logger.Info().Str("version", version).Msg("Starting grokline")

	var deadLetter *dlq.DeadLetterQueue
	if cfg.DeadLetter != nil && cfg.DeadLetter.Enabled {
		deadLetter, err = dlq.NewDeadLetterQueue(dlq.DLQConfig{
			Dir:           cfg.DeadLetter.Dir,
			MaxSize:       cfg.DeadLetter.MaxSize,
			MaxAge:        cfg.DeadLetter.MaxAge,
			FlushInterval: cfg.DeadLetter.FlushInterval,
		})
		if err != nil {
			return fmt.Errorf("failed to create dead letter queue: %w", err)
		}
		defer deadLetter.Close()
		logger.Info().Str("dir", cfg.DeadLetter.Dir).Msg("Dead letter queue initialized")
	}

	var wg sync.WaitGroup
	var tailers []*tailer.Tailer

	for _, fileInput := range cfg.Inputs.Files {
		t, err := startFileInput(fileInput, cfg, deadLetter, logger)
		if err != nil {
			return fmt.Errorf("failed to start file input: %w", err)
		}
		tailers = append(tailers, t)

		wg.Add(1)
		go func(t *tailer.Tailer) {
			defer wg.Done()
			for event := range t.Events() {
				output, err := json.Marshal(event)
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to marshal event")
					continue
				}
				fmt.Println(string(output))
			}
		}(t)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutdown signal received")

	for _, t := range tailers {
		t.Stop()
	}

	wg.Wait()

	return nil
}

// startFileInput resolves the grok parser and transform pipeline for a file
// input (falling back to the top-level config when the input doesn't
// override them), starts its tailer, and returns it for lifecycle management.
func startFileInput(fileInput config.FileInputConfig, cfg *config.Config, deadLetter *dlq.DeadLetterQueue, logger *logging.Logger) (*tailer.Tailer, error) {
	parserCfg := fileInput.Parser
	if parserCfg == nil {
		parserCfg = cfg.Parser
	}
	if parserCfg == nil {
		parserCfg = parser.DefaultParserConfig()
	}

	logParser, err := parser.New(parserCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	logger.Info().Str("parser", logParser.Name()).Msg("Parser initialized")

	transformConfigs := fileInput.Transforms
	if len(transformConfigs) == 0 {
		transformConfigs = cfg.Transforms
	}

	var extractOf parser.ExtractTagLookup
	if gp, ok := logParser.(*parser.GrokParser); ok {
		extractOf = gp.ExtractTag
	}

	if len(transformConfigs) > 0 {
		pipeline, err := parser.NewTransformPipeline(transformConfigs, extractOf)
		if err != nil {
			return nil, fmt.Errorf("failed to create transform pipeline: %w", err)
		}
		logger.Info().Int("transforms", len(transformConfigs)).Msg("Transform pipeline initialized")
		logParser = &transformingParser{Parser: logParser, pipeline: pipeline}
	}

	t, err := tailer.New(fileInput.Paths, logParser, deadLetter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tailer: %w", err)
	}

	if err := t.Start(); err != nil {
		return nil, fmt.Errorf("failed to start tailer: %w", err)
	}

	return t, nil
}

// transformingParser composes a Parser with a TransformPipeline so the
// tailer can keep treating "parse a line" as a single call, without knowing
// whether transforms are configured.
type transformingParser struct {
	parser.Parser
	pipeline *parser.TransformPipeline
}

func (p *transformingParser) Parse(line, source string) (*types.LogEvent, error) {
	event, err := p.Parser.Parse(line, source)
	if err != nil {
		return nil, err
	}
	transformed, err := p.pipeline.Transform(event)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	return transformed, nil
}
