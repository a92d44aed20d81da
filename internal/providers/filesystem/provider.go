package filesystem

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/types"
)

// Provider exposes the filesystem proxy through the service surface.
type Provider struct {
	proxy *Proxy
}

// NewProvider wraps a proxy as a service provider.
func NewProvider(proxy *Proxy) *Provider {
	return &Provider{proxy: proxy}
}

// Proxy returns the underlying typed proxy.
func (p *Provider) Proxy() *Proxy {
	return p.proxy
}

// Definition returns service metadata.
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "filesystem",
		Name:        "Filesystem Service",
		Description: "Per-user file operations scoped to the caller's workspace root",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"read",
			"write",
			"stat",
			"list",
			"mkdir",
			"delete",
			"rename",
			"glob",
			"search",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to the appropriate operation.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "filesystem.read":
		return p.read(ctx, params)
	case "filesystem.write":
		return p.write(ctx, params)
	case "filesystem.stat":
		return p.stat(ctx, params)
	case "filesystem.list":
		return p.list(ctx, params)
	case "filesystem.mkdir":
		return p.mkdir(ctx, params)
	case "filesystem.delete":
		return p.delete(ctx, params)
	case "filesystem.rename":
		return p.rename(ctx, params)
	case "filesystem.realpath":
		return p.realpath(ctx, params)
	case "filesystem.glob":
		return p.glob(ctx, params)
	case "filesystem.search":
		return p.search(ctx, params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) getTools() []types.Tool {
	pathParam := types.Parameter{Name: "path", Type: "string", Description: "Path relative to the workspace root", Required: true}
	return []types.Tool{
		{
			ID:          "filesystem.read",
			Name:        "Read File",
			Description: "Read file contents",
			Parameters:  []types.Parameter{pathParam},
			Returns:     "string",
		},
		{
			ID:          "filesystem.write",
			Name:        "Write File",
			Description: "Write data to file, creating missing parent directories",
			Parameters: []types.Parameter{
				pathParam,
				{Name: "data", Type: "string", Description: "Data to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.stat",
			Name:        "Stat",
			Description: "Get file or directory metadata",
			Parameters:  []types.Parameter{pathParam},
			Returns:     "object",
		},
		{
			ID:          "filesystem.list",
			Name:        "List Directory",
			Description: "List immediate children of a directory",
			Parameters:  []types.Parameter{pathParam},
			Returns:     "array",
		},
		{
			ID:          "filesystem.mkdir",
			Name:        "Create Directory",
			Description: "Create a directory and any missing parents",
			Parameters:  []types.Parameter{pathParam},
			Returns:     "boolean",
		},
		{
			ID:          "filesystem.delete",
			Name:        "Delete",
			Description: "Delete a file, or a directory when recursive is set",
			Parameters: []types.Parameter{
				pathParam,
				{Name: "recursive", Type: "boolean", Description: "Remove directories recursively", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.rename",
			Name:        "Rename",
			Description: "Move a file or directory within the workspace root",
			Parameters: []types.Parameter{
				{Name: "old_path", Type: "string", Description: "Current path", Required: true},
				{Name: "new_path", Type: "string", Description: "Destination path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.realpath",
			Name:        "Real Path",
			Description: "Resolve a relative path to its normalized logical form",
			Parameters:  []types.Parameter{pathParam},
			Returns:     "string",
		},
		{
			ID:          "filesystem.glob",
			Name:        "Glob",
			Description: "Find paths matching a glob pattern (supports **)",
			Parameters: []types.Parameter{
				{Name: "pattern", Type: "string", Description: "Glob pattern", Required: true},
			},
			Returns: "array",
		},
		{
			ID:          "filesystem.search",
			Name:        "Search",
			Description: "Find entries whose name contains a query",
			Parameters: []types.Parameter{
				{Name: "query", Type: "string", Description: "Name fragment", Required: true},
				{Name: "limit", Type: "number", Description: "Maximum results", Required: false},
			},
			Returns: "array",
		},
	}
}

func (p *Provider) read(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return types.Failure("path parameter required"), nil
	}

	data, err := p.proxy.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{
		"path":    path,
		"content": string(data),
		"size":    len(data),
	}), nil
}

func (p *Provider) write(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return types.Failure("path parameter required"), nil
	}
	data, ok := params["data"].(string)
	if !ok {
		return types.Failure("data parameter required"), nil
	}

	if err := p.proxy.WriteFile(ctx, path, []byte(data)); err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{
		"written": true,
		"path":    path,
		"size":    len(data),
	}), nil
}

func (p *Provider) stat(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return types.Failure("path parameter required"), nil
	}

	info, err := p.proxy.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"info": info}), nil
}

func (p *Provider) list(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, _ := params["path"].(string)
	if path == "" {
		path = "/"
	}

	entries, err := p.proxy.ListDirectory(ctx, path)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{
		"path":    path,
		"entries": entries,
		"count":   len(entries),
	}), nil
}

func (p *Provider) mkdir(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return types.Failure("path parameter required"), nil
	}

	if err := p.proxy.CreateDirectory(ctx, path); err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"created": true, "path": path}), nil
}

func (p *Provider) delete(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return types.Failure("path parameter required"), nil
	}
	recursive, _ := params["recursive"].(bool)

	if err := p.proxy.Delete(ctx, path, recursive); err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"deleted": true, "path": path}), nil
}

func (p *Provider) rename(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	oldPath, ok := params["old_path"].(string)
	if !ok || oldPath == "" {
		return types.Failure("old_path parameter required"), nil
	}
	newPath, ok := params["new_path"].(string)
	if !ok || newPath == "" {
		return types.Failure("new_path parameter required"), nil
	}

	if err := p.proxy.Rename(ctx, oldPath, newPath); err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"renamed": true, "from": oldPath, "to": newPath}), nil
}

func (p *Provider) realpath(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return types.Failure("path parameter required"), nil
	}

	resolved, err := p.proxy.RealPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"path": resolved}), nil
}

func (p *Provider) glob(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	pattern, ok := params["pattern"].(string)
	if !ok || pattern == "" {
		return types.Failure("pattern parameter required"), nil
	}

	matches, err := p.proxy.Glob(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"matches": matches, "count": len(matches)}), nil
}

func (p *Provider) search(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	query, ok := params["query"].(string)
	if !ok || query == "" {
		return types.Failure("query parameter required"), nil
	}
	limit := 0
	if n, ok := params["limit"].(float64); ok {
		limit = int(n)
	}

	matches, err := p.proxy.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"matches": matches, "count": len(matches)}), nil
}
