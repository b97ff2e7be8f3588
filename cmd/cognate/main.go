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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/cognate"
	"github.com/poiesic/cognate/ai"
	"github.com/poiesic/cognate/ai/openai"
	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/learning"
	"github.com/poiesic/cognate/reasoning"
)

func main() {
	app := &cli.App{
		Name:  "cognate",
		Usage: "Associative knowledge engine over a concept graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "learn",
				Usage:     "Learn content into the knowledge graph",
				ArgsUsage: "[content ...]",
				Action:    learnCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read content from a file, one item per line",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source label recorded on learned concepts",
						Value: "cli",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Category label recorded on learned concepts",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question by multi-path reasoning",
				ArgsUsage: "<query>",
				Action:    askCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "paths",
						Usage: "Number of reasoning paths to collect",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "depth",
						Usage: "Maximum traversal depth in hops",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "semantic-boost",
						Usage: "Blend embedding similarity into path confidences",
					},
					&cli.BoolFlag{
						Name:  "multi-strategy",
						Usage: "Run graph, semantic, and hybrid strategies concurrently",
					},
					&cli.BoolFlag{
						Name:  "stream",
						Usage: "Stream progress events while reasoning",
					},
					&cli.Float64Flag{
						Name:  "min-confidence",
						Usage: "Reject answers below this confidence",
					},
					&cli.StringFlag{
						Name:  "profile",
						Usage: "Quality gate profile (strict, moderate, lenient)",
						Value: reasoning.DefaultProfile,
					},
				),
			},
			{
				Name:      "path",
				Usage:     "Find reasoning paths between two learned contents",
				ArgsUsage: "<from> <to>",
				Action:    pathCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "paths",
						Usage: "Number of paths to return",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "depth",
						Usage: "Maximum traversal depth in hops",
						Value: 5,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show graph statistics",
				Action: statsCommand,
				Flags:  storeFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens an engine.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL; empty uses the built-in hashing provider",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
	}
}

// openEngine builds an engine from the shared flags and loads the
// persisted graph.
func openEngine(ctx context.Context, c *cli.Context, profile string) (*cognate.Engine, error) {
	opts := []cognate.EngineOption{
		cognate.WithStoragePath(c.String("db")),
	}
	if profile != "" {
		opts = append(opts, cognate.WithGateProfile(profile))
	}

	if host := c.String("embedding-host"); host != "" {
		configOpts := []ai.ConfigOption{ai.WithHost(host)}
		if model := c.String("embedding-model"); model != "" {
			configOpts = append(configOpts, ai.WithModel(model))
		}
		aiConfig := ai.NewConfig(configOpts...)
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid AI configuration: %w", err)
		}
		provider, err := openai.NewProvider(ctx, aiConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
		opts = append(opts, cognate.WithProvider(provider))
	}

	engine, err := cognate.NewEngine(opts...)
	if err != nil {
		return nil, err
	}
	if err := engine.Load(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	return engine, nil
}

func learnCommand(c *cli.Context) error {
	ctx := context.Background()

	var items []learning.Item
	source := c.String("source")
	category := c.String("category")

	if file := c.String("file"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			items = append(items, learning.Item{Content: line, Source: source, Category: category})
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
	}
	for _, arg := range c.Args().Slice() {
		items = append(items, learning.Item{Content: arg, Source: source, Category: category})
	}
	if len(items) == 0 {
		return fmt.Errorf("nothing to learn: pass content arguments or --file")
	}

	engine, err := openEngine(ctx, c, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	ids, err := engine.LearnBatch(ctx, items)
	if err != nil {
		return fmt.Errorf("learning failed: %w", err)
	}
	if err := engine.Save(ctx); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	var learned int
	for _, id := range ids {
		if !id.IsZero() {
			learned++
		}
	}
	stats := engine.Stats()
	fmt.Fprintf(os.Stderr, "Learned %d of %d items\n", learned, len(items))
	fmt.Fprintf(os.Stderr, "Graph: %d concepts, %d associations\n", stats.Concepts, stats.Associations)
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	engine, err := openEngine(ctx, c, c.String("profile"))
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := reasoning.AskOptions{
		NumPaths:      c.Int("paths"),
		MaxDepth:      c.Int("depth"),
		SemanticBoost: c.Bool("semantic-boost"),
		MinConfidence: float32(c.Float64("min-confidence")),
	}

	if c.Bool("stream") {
		var answer *reasoning.ProgressEvent
		for event := range engine.AskStream(ctx, query, opts) {
			fmt.Fprintf(os.Stderr, "[%s] confidence %.2f\n", event.Stage, event.Confidence)
			if event.Path != nil {
				fmt.Fprintf(os.Stderr, "  %s\n", event.Path.Explanation)
			}
			if event.Answer != nil {
				e := event
				answer = &e
			}
		}
		if answer == nil {
			return fmt.Errorf("query was cancelled before completing")
		}
		printAnswer(answer.Answer)
		return nil
	}

	var answer *core.Answer
	if c.Bool("multi-strategy") {
		answer, err = engine.AskMultiStrategy(ctx, query, opts)
	} else {
		answer, err = engine.Ask(ctx, query, opts)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printAnswer(answer)
	return nil
}

func pathCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.Args().Len() != 2 {
		return fmt.Errorf("expected exactly two arguments: <from> <to>")
	}
	from, to := c.Args().Get(0), c.Args().Get(1)

	engine, err := openEngine(ctx, c, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	paths := engine.FindPathSemantic(ctx, from, to, c.Int("depth"), c.Int("paths"), nil)
	if len(paths) == 0 {
		fmt.Println("No path found")
		return nil
	}
	for i, path := range paths {
		fmt.Printf("%d. [%.2f] %s\n", i+1, path.Confidence, path.Explanation)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(ctx, c, "")
	if err != nil {
		return err
	}
	defer engine.Close()

	stats := engine.Stats()
	fmt.Printf("Concepts:     %d\n", stats.Concepts)
	fmt.Printf("Associations: %d\n", stats.Associations)
	fmt.Printf("Provider:     %s (%d dimensions)\n", stats.Provider, stats.Dimension)
	return nil
}

func printAnswer(answer *core.Answer) {
	fmt.Printf("Answer: %s\n", answer.Primary)
	fmt.Printf("Confidence: %.2f  Consensus: %.2f  Concepts accessed: %d\n",
		answer.Confidence, answer.ConsensusStrength, answer.ConceptsAccessed)
	for i, path := range answer.Paths {
		fmt.Printf("  path %d [%.2f]: %s\n", i+1, path.Confidence, path.Explanation)
	}
	for _, alt := range answer.Alternatives {
		fmt.Printf("  alternative: %s\n", alt)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
