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
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := loadEnv(".env"); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnv loads variables from the given dotenv files. Missing files are
// ignored and variables already set in the environment win.
func loadEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory",
		EnvVars: []string{"ATTEST_DB"},
		Value:   "./attest.db",
	}
}

func sessionFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "session",
		Aliases:  []string{"s"},
		Usage:    "Session ID",
		EnvVars:  []string{"ATTEST_SESSION"},
		Required: required,
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Model service host URL for both embedding and generation",
			EnvVars: []string{"ATTEST_HOST"},
			Value:   "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL (defaults to host)",
			EnvVars: []string{"ATTEST_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "generation-host",
			Usage:   "Generation service host URL (defaults to host)",
			EnvVars: []string{"ATTEST_GENERATION_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"ATTEST_EMBEDDING_MODEL"},
			Value:   "embeddinggemma",
		},
		&cli.StringFlag{
			Name:    "generation-model",
			Usage:   "Generation model name",
			EnvVars: []string{"ATTEST_GENERATION_MODEL"},
			Value:   "qwen2.5:7b",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the model services",
			EnvVars: []string{"ATTEST_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout for each model request",
			EnvVars: []string{"ATTEST_TIMEOUT"},
			Value:   60 * time.Second,
		},
		&cli.IntFlag{
			Name:    "requests-per-minute",
			Usage:   "Client-side rate limit for model requests (0 disables it)",
			EnvVars: []string{"ATTEST_REQUESTS_PER_MINUTE"},
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for failed model requests",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
	}
}

func withModelFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, modelFlags()...)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "attest",
		Usage: "Answer questions over documents and verify every claim against its sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"ATTEST_LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest PDF, text, markdown and XLSX files into a session",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: withModelFlags(
					dbFlag(),
					sessionFlag(false),
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in characters",
						Value: 1200,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Overlap between consecutive chunks in characters",
						Value: 150,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks in each embedding request",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent embedding requests",
						Value: 2,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from a session's documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: withModelFlags(
					dbFlag(),
					sessionFlag(true),
					&cli.StringSliceFlag{
						Name:  "doc",
						Usage: "Restrict retrieval to this document (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "force-orchestrator",
						Usage: "Always decompose the question",
					},
					&cli.BoolFlag{
						Name:  "no-orchestrator",
						Usage: "Never decompose the question",
					},
					&cli.BoolFlag{
						Name:  "skip-verification",
						Usage: "Do not verify the answer",
					},
					&cli.IntFlag{
						Name:  "parallelism",
						Usage: "Number of sub-questions resolved concurrently",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "trajectory",
						Usage: "Print the reasoning trajectory",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full response as JSON",
					},
				),
			},
			{
				Name:      "route",
				Usage:     "Show how a question would be routed",
				ArgsUsage: "QUESTION",
				Action:    routeCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the decision as JSON",
					},
				},
			},
			{
				Name:  "sessions",
				Usage: "Manage persisted sessions",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List persisted sessions",
						Action: listSessionsCommand,
						Flags:  []cli.Flag{dbFlag()},
					},
					{
						Name:      "delete",
						Usage:     "Delete a session and everything ingested into it",
						ArgsUsage: "SESSION_ID",
						Action:    deleteSessionCommand,
						Flags:     []cli.Flag{dbFlag()},
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed the stored chunks of a session with the configured embedding model",
				Action: reembedCommand,
				Flags: withModelFlags(
					dbFlag(),
					sessionFlag(true),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 64,
					},
				),
			},
			{
				Name:   "export-tables",
				Usage:  "Export the tables of a session to an XLSX workbook",
				Action: exportTablesCommand,
				Flags: []cli.Flag{
					dbFlag(),
					sessionFlag(true),
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Output workbook path",
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
