package chain

import (
	"fmt"
	"sort"

	"custody-engine/utility/appError"
	"custody-engine/utility/errorcode"
)

// Registry resolves a network identifier to its adapter. Built once at process
// start from the configured adapter set; pure lookup afterwards.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	registry := &Registry{adapters: make(map[string]Adapter)}
	for _, adapter := range adapters {
		registry.adapters[adapter.Network()] = adapter
	}
	return registry
}

// AdapterFor ... Resolves the adapter for a network, failing with
// UNSUPPORTED_NETWORK for anything outside the configured set.
func (registry *Registry) AdapterFor(network string) (Adapter, error) {
	adapter, ok := registry.adapters[network]
	if !ok {
		return nil, appError.New(errorcode.UNSUPPORTED_NETWORK, fmt.Errorf("network %s is not supported", network))
	}
	return adapter, nil
}

// SupportedNetworks ... Sorted list of configured network identifiers.
func (registry *Registry) SupportedNetworks() []string {
	networks := make([]string, 0, len(registry.adapters))
	for network := range registry.adapters {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	return networks
}
