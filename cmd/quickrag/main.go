// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/quickrag/answer"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "quickrag",
		Usage: "PDF ingestion pipelines and question answering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Load settings from this env file instead of .env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Listen address (overrides LISTEN_ADDR)",
					},
					&cli.DurationFlag{
						Name:  "request-timeout",
						Usage: "Maximum time to handle one request",
						Value: 60 * time.Second,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Assemble a pipeline and ingest PDF files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Embedding provider (OLLAMA, OPENAI)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "model",
						Aliases:  []string{"m"},
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "arg",
						Usage: "Provider argument as key=value (repeatable)",
					},
					&cli.StringFlag{
						Name:  "args-json",
						Usage: "Provider arguments as a JSON object",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Pipeline identifier (single file only; generated when empty)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of files ingested at once",
						Value: 2,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 50,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from ingested documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "LLM provider (OLLAMA, OPENAI)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "llm",
						Usage:    "LLM model name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "llm-arg",
						Usage: "LLM argument as key=value (repeatable)",
					},
					&cli.StringFlag{
						Name:  "embedding-provider",
						Usage: "Embedding provider (defaults to --provider)",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model used at ingestion",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "embedding-arg",
						Usage: "Embedding argument as key=value (repeatable)",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: fmt.Sprintf("Number of passages used as context (1-%d)", answer.MaxTopK),
						Value: answer.DefaultTopK,
					},
					&cli.Float64Flag{
						Name:  "temperature",
						Usage: "Sampling temperature",
						Value: answer.DefaultTemperature,
					},
				},
			},
			{
				Name:   "inspect",
				Usage:  "Print the persisted definition of a pipeline",
				Action: inspectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Pipeline identifier",
						Required: true,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
