package terminal

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/types"
)

// Provider exposes the terminal factory through the service surface.
type Provider struct {
	factory *Factory
}

// NewProvider wraps a factory as a service provider.
func NewProvider(factory *Factory) *Provider {
	return &Provider{factory: factory}
}

// Factory returns the underlying typed factory.
func (p *Provider) Factory() *Factory {
	return p.factory
}

// Definition returns service metadata.
func (p *Provider) Definition() types.Service {
	idParam := types.Parameter{Name: "id", Type: "string", Description: "Terminal id", Required: true}
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Per-user pty-backed terminals rooted in the caller's workspace",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"create",
			"send",
			"show",
			"hide",
			"dispose",
			"list",
			"read",
		},
		Tools: []types.Tool{
			{
				ID:          "terminal.create",
				Name:        "Create Terminal",
				Description: "Start a shell with the caller's workspace root as working directory",
				Parameters: []types.Parameter{
					{Name: "name", Type: "string", Description: "Display name", Required: false},
					{Name: "shell", Type: "string", Description: "Shell binary (defaults to $SHELL)", Required: false},
					{Name: "cols", Type: "number", Description: "Columns", Required: false},
					{Name: "rows", Type: "number", Description: "Rows", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "terminal.send",
				Name:        "Send Text",
				Description: "Write text to the terminal's input",
				Parameters: []types.Parameter{
					idParam,
					{Name: "text", Type: "string", Description: "Text to send", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "terminal.show",
				Name:        "Show Terminal",
				Description: "Mark the terminal visible",
				Parameters:  []types.Parameter{idParam},
				Returns:     "boolean",
			},
			{
				ID:          "terminal.hide",
				Name:        "Hide Terminal",
				Description: "Mark the terminal hidden",
				Parameters:  []types.Parameter{idParam},
				Returns:     "boolean",
			},
			{
				ID:          "terminal.dispose",
				Name:        "Dispose Terminal",
				Description: "Kill the shell and release the terminal",
				Parameters:  []types.Parameter{idParam},
				Returns:     "boolean",
			},
			{
				ID:          "terminal.list",
				Name:        "List Terminals",
				Description: "List the caller's live terminals",
				Returns:     "array",
			},
			{
				ID:          "terminal.read",
				Name:        "Read Output",
				Description: "Drain buffered terminal output",
				Parameters:  []types.Parameter{idParam},
				Returns:     "string",
			},
		},
	}
}

// Execute routes to the appropriate operation.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "terminal.create":
		return p.create(ctx, params)
	case "terminal.send":
		return p.send(ctx, params)
	case "terminal.show":
		return p.setVisible(ctx, params, true)
	case "terminal.hide":
		return p.setVisible(ctx, params, false)
	case "terminal.dispose":
		return p.dispose(ctx, params)
	case "terminal.list":
		return p.list(ctx)
	case "terminal.read":
		return p.read(ctx, params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) create(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	opts := Options{}
	opts.Name, _ = params["name"].(string)
	opts.Shell, _ = params["shell"].(string)
	if n, ok := params["cols"].(float64); ok {
		opts.Cols = int(n)
	}
	if n, ok := params["rows"].(float64); ok {
		opts.Rows = int(n)
	}

	t, err := p.factory.Create(ctx, opts)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"terminal": t}), nil
}

func (p *Provider) lookup(ctx context.Context, params map[string]interface{}) (*Terminal, *types.Result, error) {
	termID, ok := params["id"].(string)
	if !ok || termID == "" {
		return nil, types.Failure("id parameter required"), nil
	}
	t, err := p.factory.Get(ctx, termID)
	if err != nil {
		return nil, nil, err
	}
	return t, nil, nil
}

func (p *Provider) send(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	t, failure, err := p.lookup(ctx, params)
	if t == nil {
		return failure, err
	}
	text, ok := params["text"].(string)
	if !ok {
		return types.Failure("text parameter required"), nil
	}

	if err := t.SendText(text); err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"sent": true, "id": t.ID}), nil
}

func (p *Provider) setVisible(ctx context.Context, params map[string]interface{}, visible bool) (*types.Result, error) {
	t, failure, err := p.lookup(ctx, params)
	if t == nil {
		return failure, err
	}

	if visible {
		err = t.Show()
	} else {
		err = t.Hide()
	}
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"visible": visible, "id": t.ID}), nil
}

func (p *Provider) dispose(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	t, failure, err := p.lookup(ctx, params)
	if t == nil {
		return failure, err
	}

	t.Dispose()
	return types.Success(map[string]interface{}{"disposed": true, "id": t.ID}), nil
}

func (p *Provider) list(ctx context.Context) (*types.Result, error) {
	terminals, err := p.factory.List(ctx)
	if err != nil {
		return nil, err
	}
	return types.Success(map[string]interface{}{"terminals": terminals, "count": len(terminals)}), nil
}

func (p *Provider) read(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	t, failure, err := p.lookup(ctx, params)
	if t == nil {
		return failure, err
	}

	return types.Success(map[string]interface{}{"id": t.ID, "output": string(t.Output())}), nil
}
