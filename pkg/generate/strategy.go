package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/alantheprice/appforge/pkg/plan"
)

// Strategy generates one file for its artifact category.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, req Request) (*GeneratedFile, error)
	// GenerateStream behaves like Generate but forwards the growing
	// content field through onChunk as the model streams its reply.
	GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) (*GeneratedFile, error)
}

// Registry holds the dispatch table from category to strategy. Unknown or
// uncovered categories fall back to the utility strategy.
type Registry struct {
	strategies map[plan.Category]Strategy
	fallback   Strategy
}

// NewRegistry wires every category to its strategy.
func NewRegistry(client llm.ClientInterface, cfg *config.Config) *Registry {
	base := &modelStrategy{client: client, cfg: cfg}

	page := &pageStrategy{modelStrategy: base}
	component := &componentStrategy{modelStrategy: base}
	apiRoute := &apiStrategy{modelStrategy: base}
	utility := &utilityStrategy{modelStrategy: base}
	configFile := &configStrategy{modelStrategy: base}

	strategies := map[plan.Category]Strategy{
		plan.CategoryPage:          page,
		plan.CategoryLayout:        page,
		plan.CategoryLoading:       page,
		plan.CategoryErrorPage:     page,
		plan.CategoryNotFound:      page,
		plan.CategoryComponent:     component,
		plan.CategoryAPI:           apiRoute,
		plan.CategoryMiddleware:    apiRoute,
		plan.CategoryUtility:       utility,
		plan.CategoryHook:          utility,
		plan.CategoryType:          utility,
		plan.CategoryStyle:         utility,
		plan.CategoryStatic:        utility,
		plan.CategoryDocumentation: utility,
		plan.CategoryConfig:        configFile,
	}

	return &Registry{strategies: strategies, fallback: utility}
}

// For returns the strategy for a category, falling back to the utility
// strategy for anything uncovered.
func (r *Registry) For(category plan.Category) Strategy {
	if s, ok := r.strategies[category]; ok {
		return s
	}
	return r.fallback
}

// modelStrategy holds the shared prompt/stream/parse cycle all
// model-backed strategies use. Each concrete strategy contributes its
// category-specific instruction.
type modelStrategy struct {
	client llm.ClientInterface
	cfg    *config.Config
}

// instructionBuilder produces the category-specific system instruction.
type instructionBuilder interface {
	instruction(req Request) string
}

func (m *modelStrategy) buildMessages(req Request, builder instructionBuilder) []llm.Message {
	system := builder.instruction(req) + `

Respond with JSON only:
{"content": "<full file text>", "imports": ["..."], "exports": ["..."], "metadata": {}}`

	var user strings.Builder
	fmt.Fprintf(&user, "Project: %s\n\nSpecification:\n%s\n", req.Context.ProjectName, req.Context.Specification)
	if len(req.Context.Architecture) > 0 {
		user.WriteString("\nArchitecture decisions:\n")
		for key, value := range req.Context.Architecture {
			fmt.Fprintf(&user, "- %s: %s\n", key, value)
		}
	}
	fmt.Fprintf(&user, "\nGenerate the file %s: %s\n", req.Task.Path, req.Task.Description)

	if len(req.RelatedFiles) > 0 {
		user.WriteString("\nAlready generated files for context:\n")
		for _, related := range req.RelatedFiles {
			fmt.Fprintf(&user, "--- %s ---\n%s\n", related.Path, related.Content)
		}
	}

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}

func (m *modelStrategy) generate(ctx context.Context, req Request, builder instructionBuilder) (*GeneratedFile, error) {
	messages := m.buildMessages(req, builder)
	resp, err := m.client.SendChatRequest(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generation of %s failed: %w", req.Task.Path, err)
	}
	return parseReply(req.Task, resp.Content())
}

func (m *modelStrategy) generateStream(ctx context.Context, req Request, builder instructionBuilder, onChunk ChunkFunc) (*GeneratedFile, error) {
	if onChunk == nil {
		return m.generate(ctx, req, builder)
	}

	messages := m.buildMessages(req, builder)

	extractor := &contentExtractor{}
	chunker := NewChunker(m.cfg.StreamChunkLines)
	var accumulated strings.Builder

	resp, err := m.client.SendChatRequestStream(ctx, messages, func(delta string) {
		newText := extractor.add(delta)
		if newText == "" {
			return
		}
		if chunk, emit := chunker.AddContent(newText); emit {
			accumulated.WriteString(chunk)
			onChunk(chunk, accumulated.String())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("generation of %s failed: %w", req.Task.Path, err)
	}

	// Emit whatever the chunker still holds before completing.
	if chunk, emit := chunker.Flush(); emit {
		accumulated.WriteString(chunk)
		onChunk(chunk, accumulated.String())
	}

	return parseReply(req.Task, resp.Content())
}

// pageStrategy generates pages, layouts and the framework-special page
// variants (loading, error, not-found).
type pageStrategy struct {
	*modelStrategy
}

func (s *pageStrategy) Name() string { return "page" }

func (s *pageStrategy) instruction(req Request) string {
	kind := "page"
	switch req.Task.Category {
	case plan.CategoryLayout:
		kind = "layout"
	case plan.CategoryLoading:
		kind = "loading state"
	case plan.CategoryErrorPage:
		kind = "error boundary page"
	case plan.CategoryNotFound:
		kind = "not-found page"
	}
	return fmt.Sprintf(`You are an expert frontend engineer. Produce a complete %s
for a Next.js App Router project. Export the component as the default export,
named %s. Add the "use client" directive only when the file uses state,
effects or browser APIs. Set metadata.is_client accordingly and list any
React state variables in metadata.state_variables.`, kind, ComponentName(req.Task.Path))
}

func (s *pageStrategy) Generate(ctx context.Context, req Request) (*GeneratedFile, error) {
	return s.generate(ctx, req, s)
}

func (s *pageStrategy) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) (*GeneratedFile, error) {
	return s.generateStream(ctx, req, s, onChunk)
}

// componentStrategy generates reusable UI components.
type componentStrategy struct {
	*modelStrategy
}

func (s *componentStrategy) Name() string { return "component" }

func (s *componentStrategy) instruction(req Request) string {
	return fmt.Sprintf(`You are an expert frontend engineer. Produce a reusable React
component named %s with a typed props interface. Export the component as a
named export. Add the "use client" directive only when the component uses
state, effects or browser APIs, and set metadata.is_client accordingly.
List React state variables in metadata.state_variables.`, ComponentName(req.Task.Path))
}

func (s *componentStrategy) Generate(ctx context.Context, req Request) (*GeneratedFile, error) {
	return s.generate(ctx, req, s)
}

func (s *componentStrategy) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) (*GeneratedFile, error) {
	return s.generateStream(ctx, req, s, onChunk)
}

// apiStrategy generates API route handlers and middleware.
type apiStrategy struct {
	*modelStrategy
}

func (s *apiStrategy) Name() string { return "api" }

func (s *apiStrategy) instruction(req Request) string {
	if req.Task.Category == plan.CategoryMiddleware {
		return `You are an expert backend engineer. Produce a Next.js middleware file
exporting a middleware function and its matcher config. Validate untrusted
input before use.`
	}
	return `You are an expert backend engineer. Produce a Next.js App Router API
route handler. Export one function per HTTP method (GET, POST, ...), validate
request bodies and query parameters before use, return NextResponse.json with
correct status codes, and never interpolate untrusted input into queries.
List the declared endpoints in metadata.endpoints.`
}

func (s *apiStrategy) Generate(ctx context.Context, req Request) (*GeneratedFile, error) {
	return s.generate(ctx, req, s)
}

func (s *apiStrategy) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) (*GeneratedFile, error) {
	return s.generateStream(ctx, req, s, onChunk)
}

// utilityStrategy generates utilities, hooks, types, styles, static assets
// and documentation. It is also the fallback for unknown categories.
type utilityStrategy struct {
	*modelStrategy
}

func (s *utilityStrategy) Name() string { return "utility" }

func (s *utilityStrategy) instruction(req Request) string {
	switch req.Task.Category {
	case plan.CategoryHook:
		return `You are an expert frontend engineer. Produce a React hook. Name it with
the use- prefix, export it as a named export and include the "use client"
directive. List its state variables in metadata.state_variables.`
	case plan.CategoryType:
		return `You are an expert TypeScript engineer. Produce a module of shared type
definitions. Export every type and interface; no runtime code.`
	case plan.CategoryStyle:
		return `You are an expert frontend engineer. Produce a stylesheet for this
project consistent with its styling architecture decision.`
	case plan.CategoryDocumentation:
		return `You are a technical writer. Produce project documentation in Markdown
covering setup, usage and the generated file structure.`
	default:
		return `You are an expert software engineer. Produce a utility module with
small, pure, typed functions exported as named exports.`
	}
}

func (s *utilityStrategy) Generate(ctx context.Context, req Request) (*GeneratedFile, error) {
	return s.generate(ctx, req, s)
}

func (s *utilityStrategy) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) (*GeneratedFile, error) {
	return s.generateStream(ctx, req, s, onChunk)
}
