package generate

import (
	"github.com/alantheprice/appforge/pkg/plan"
)

// GeneratedFile is the completed output for one FileTask. It is produced
// exactly once per successful task and never mutated afterward.
type GeneratedFile struct {
	Path     string         `json:"path"`
	Content  string         `json:"content"`
	Category plan.Category  `json:"category"`
	Imports  []string       `json:"imports"`
	Exports  []string       `json:"exports"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunContext carries the run-wide inputs every strategy needs to build its
// instruction payload.
type RunContext struct {
	ProjectName   string
	Specification string
	Architecture  map[string]string
	Packages      []string
}

// Request is the input to one strategy invocation.
type Request struct {
	Task         plan.FileTask
	RelatedFiles []*GeneratedFile
	Context      RunContext
}

// ChunkFunc receives incremental content while a strategy streams: the new
// text since the previous call and the full accumulated content so far.
type ChunkFunc func(delta, accumulated string)
