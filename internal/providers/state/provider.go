package state

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/types"
)

// Provider exposes the state store through the service surface.
type Provider struct {
	store *Store
}

// NewProvider wraps a store as a service provider.
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

// Store returns the underlying typed store.
func (p *Provider) Store() *Store {
	return p.store
}

// Definition returns service metadata.
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "state",
		Name:        "State Service",
		Description: "Per-user persisted key-value namespaces (global and workspace)",
		Category:    types.CategoryStorage,
		Capabilities: []string{
			"get",
			"set",
			"delete",
			"keys",
		},
		Tools: []types.Tool{
			{
				ID:          "state.get",
				Name:        "Get Value",
				Description: "Read one key from a namespace document",
				Parameters: []types.Parameter{
					{Name: "namespace", Type: "string", Description: "globalState or workspaceState", Required: true},
					{Name: "key", Type: "string", Description: "Key to read", Required: true},
					{Name: "default", Type: "any", Description: "Value returned when absent", Required: false},
				},
				Returns: "any",
			},
			{
				ID:          "state.set",
				Name:        "Set Value",
				Description: "Write one key (whole-document read-modify-write, last write wins)",
				Parameters: []types.Parameter{
					{Name: "namespace", Type: "string", Description: "globalState or workspaceState", Required: true},
					{Name: "key", Type: "string", Description: "Key to write", Required: true},
					{Name: "value", Type: "any", Description: "Value to store", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "state.delete",
				Name:        "Delete Value",
				Description: "Remove one key from a namespace document",
				Parameters: []types.Parameter{
					{Name: "namespace", Type: "string", Description: "globalState or workspaceState", Required: true},
					{Name: "key", Type: "string", Description: "Key to remove", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "state.keys",
				Name:        "List Keys",
				Description: "List keys present in a namespace document",
				Parameters: []types.Parameter{
					{Name: "namespace", Type: "string", Description: "globalState or workspaceState", Required: true},
				},
				Returns: "array",
			},
		},
	}
}

// Execute routes to the appropriate operation.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	ns, err := namespaceParam(params)
	if err != nil {
		return types.Failure(err.Error()), nil
	}

	switch toolID {
	case "state.get":
		key, ok := params["key"].(string)
		if !ok || key == "" {
			return types.Failure("key parameter required"), nil
		}
		value, err := p.store.Get(ctx, ns, key, params["default"])
		if err != nil {
			return nil, err
		}
		return types.Success(map[string]interface{}{"key": key, "value": value}), nil

	case "state.set":
		key, ok := params["key"].(string)
		if !ok || key == "" {
			return types.Failure("key parameter required"), nil
		}
		if err := p.store.Update(ctx, ns, key, params["value"]); err != nil {
			return nil, err
		}
		return types.Success(map[string]interface{}{"written": true, "key": key}), nil

	case "state.delete":
		key, ok := params["key"].(string)
		if !ok || key == "" {
			return types.Failure("key parameter required"), nil
		}
		if err := p.store.Delete(ctx, ns, key); err != nil {
			return nil, err
		}
		return types.Success(map[string]interface{}{"deleted": true, "key": key}), nil

	case "state.keys":
		keys, err := p.store.Keys(ctx, ns)
		if err != nil {
			return nil, err
		}
		return types.Success(map[string]interface{}{"keys": keys, "count": len(keys)}), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func namespaceParam(params map[string]interface{}) (Namespace, error) {
	raw, _ := params["namespace"].(string)
	ns := Namespace(raw)
	if !ns.Valid() {
		return "", fmt.Errorf("namespace must be %q or %q", NamespaceGlobal, NamespaceWorkspace)
	}
	return ns, nil
}
