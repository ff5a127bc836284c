package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/alantheprice/appforge/pkg/orchestrate"
	"github.com/alantheprice/appforge/pkg/plan"
	"github.com/alantheprice/appforge/pkg/store"
	"github.com/alantheprice/appforge/pkg/utils"
	"github.com/alantheprice/appforge/pkg/validate"
	"github.com/alantheprice/appforge/pkg/workspace"
)

var (
	generateProvider  string
	generateModel     string
	generateCategory  string
	generateOutDir    string
	generateBatchSize int
	generateNoStream  bool
	generateExisting  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Plan and generate a project from a description",
	Long: `Generate plans and builds a complete project from a natural-language
description. The description is taken from the argument, or read from
stdin when piped. Generated files are written under --out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateProvider, "provider", "", "model provider (openai, deepinfra, ollama)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "override the generation model")
	generateCmd.Flags().StringVar(&generateCategory, "category", "web-app", "project category hint for the planner")
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", ".", "directory to write generated files into")
	generateCmd.Flags().IntVar(&generateBatchSize, "batch", 0, "generate up to N independent files concurrently")
	generateCmd.Flags().BoolVar(&generateNoStream, "no-stream", false, "disable streaming output")
	generateCmd.Flags().BoolVar(&generateExisting, "existing", false, "scan --out for existing files and feed them in as context")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	specification, err := readSpecification(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(generateOutDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Echo progress to stdout only when a human is watching.
	cfg.Echo = term.IsTerminal(int(os.Stdout.Fd()))
	cfg.ProjectDir = generateOutDir
	if generateBatchSize > 0 {
		cfg.BatchSize = generateBatchSize
	}
	if generateNoStream {
		cfg.EnableStreaming = false
	}

	logger := utils.GetLogger(cfg.Echo)

	provider, err := llm.DetermineProvider(generateProvider)
	if err != nil {
		return err
	}
	model := generateModel
	if model == "" {
		model = modelFor(provider, cfg)
	}
	client, err := llm.NewUnifiedClient(provider, model)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	planner := plan.NewPlanner(client, cfg)
	generationPlan, err := planner.CreatePlan(ctx, specification, generateCategory, nil)
	if err != nil {
		return err
	}
	logger.Logf("Planned %d files for %q", len(generationPlan.Tasks), generationPlan.ProjectName)

	registry := generate.NewRegistry(client, cfg)
	orchestrator := orchestrate.New(registry, cfg)

	emit := consoleEmitter(logger)
	result, runErr := orchestrator.Run(ctx, generationPlan, emit)

	artifacts := store.New()
	projectID := generationPlan.ProjectName
	if generateExisting {
		scanned, scanErr := workspace.Scan(generateOutDir)
		if scanErr != nil {
			logger.LogError(fmt.Errorf("workspace scan: %w", scanErr))
		}
		for _, file := range scanned {
			if _, err := artifacts.Upsert(projectID, file.Path, file.Content); err != nil {
				return err
			}
		}
	}
	for _, file := range result.Files {
		if _, err := artifacts.Upsert(projectID, file.Path, file.Content); err != nil {
			return err
		}
	}
	if exportErr := artifacts.ExportDir(projectID, generateOutDir); exportErr != nil {
		return exportErr
	}
	if runErr != nil {
		return fmt.Errorf("generation aborted after %d files: %w", len(result.Files), runErr)
	}

	report := validate.New().ValidateProject(result.Files, emit)
	logger.Logf("Validation: score %.1f/10, security risk %s, pass=%v",
		report.OverallScore, report.SecurityRisk, report.Pass)
	for _, failure := range result.Failures {
		logger.Logf("  failed: %s: %v", failure.Path, failure.Err)
	}

	logger.LogProcessStep(fmt.Sprintf("Wrote %s to %s", artifacts.Summary(projectID), generateOutDir))
	if !report.Pass {
		return fmt.Errorf("generated project did not pass validation")
	}
	return nil
}

// readSpecification takes the description from the argument, falling
// back to stdin when input is piped in.
func readSpecification(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read description from stdin: %w", err)
		}
		if spec := strings.TrimSpace(string(data)); spec != "" {
			return spec, nil
		}
	}
	return "", fmt.Errorf("a project description is required (argument or stdin)")
}

func modelFor(provider llm.ClientType, cfg *config.Config) string {
	switch provider {
	case llm.OllamaLocalClientType:
		return cfg.LocalModel
	default:
		return cfg.GenerationModel
	}
}

// consoleEmitter prints a compact progress line per event.
func consoleEmitter(logger *utils.Logger) events.Emitter {
	return func(eventType string, data any) {
		payload, _ := data.(map[string]any)
		switch eventType {
		case events.EventTypeFileStart:
			logger.Logf("  generating %v", payload["path"])
		case events.EventTypeFileComplete:
			logger.Logf("  done       %v", payload["path"])
		case events.EventTypeFileError:
			logger.Logf("  FAILED     %v: %v", payload["path"], payload["error"])
		case events.EventTypeValidationFile:
			logger.Logf("  validated  %v (score %v)", payload["path"], payload["score"])
		case events.EventTypeStatus:
			logger.Logf("%v", payload["message"])
		}
	}
}
