// researchctl starts a research session and waits for the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/config"
	"github.com/kestrellabs/deepresearch/internal/workflows"
)

func main() {
	var (
		topic         = flag.String("topic", "", "research topic (required)")
		maxDepth      = flag.Int("max-depth", -1, "max refinement depth per sub-question (-1 uses config)")
		initialSearch = flag.Bool("initial-search", false, "run an orientation search before planning")
		output        = flag.String("output", "", "write the report to this file instead of stdout")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *topic == "" {
		fmt.Fprintln(os.Stderr, "usage: researchctl -topic \"...\" [-max-depth N] [-output report.md]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	depth := cfg.Research.MaxSearchDepth
	if *maxDepth >= 0 {
		depth = *maxDepth
	}

	hostPort := os.Getenv("TEMPORAL_HOST")
	if hostPort == "" {
		hostPort = client.DefaultHostPort
	}
	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		logger.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

	sessionID := uuid.NewString()
	run, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        "research-" + sessionID,
		TaskQueue: workflows.TaskQueue,
	}, workflows.ResearchWorkflow, workflows.ResearchInput{
		SessionID:          sessionID,
		Topic:              *topic,
		MaxDepth:           depth,
		AllowRepeatQueries: cfg.Research.AllowRepeatQueries,
		InitialSearch:      *initialSearch || cfg.Research.InitialSearch,
	})
	if err != nil {
		logger.Fatal("start research session", zap.Error(err))
	}

	logger.Info("research session running",
		zap.String("session_id", sessionID),
		zap.String("workflow_id", run.GetID()),
		zap.Int("max_depth", depth),
	)

	var result workflows.ResearchResult
	if err := run.Get(context.Background(), &result); err != nil {
		logger.Fatal("research session failed", zap.Error(err))
	}

	logger.Info("research session finished",
		zap.String("session_id", result.SessionID),
		zap.Int("sub_questions", len(result.Outcomes)),
		zap.Int("citations", len(result.Citations)),
		zap.Bool("fallback_report", result.FallbackReport),
	)

	if *output != "" {
		if err := os.WriteFile(*output, []byte(result.Report), 0o644); err != nil {
			logger.Fatal("write report", zap.Error(err))
		}
		fmt.Printf("report written to %s\n", *output)
		return
	}
	fmt.Println(result.Report)
}
