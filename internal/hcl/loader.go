package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL configuration loading process. Settings
// blocks are merged in file order on top of the defaults; node types must be
// unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()

	hclFiles, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Settings {
			if err := mergeSettings(model.Settings, s); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		for _, nt := range root.NodeTypes {
			if _, exists := model.NodeTypes[nt.Type]; exists {
				return nil, fmt.Errorf("%s: node_type '%s' is declared more than once", file, nt.Type)
			}
			def, err := translateNodeType(ctx, nt)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.NodeTypes[def.Type] = def
		}
	}

	if err := model.Settings.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "files", len(hclFiles), "node_types", len(model.NodeTypes))
	return model, nil
}
