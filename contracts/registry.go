// Copyright 2026 The evm-data-collector Authors
// This file is part of the evm-data-collector library.
//
// The evm-data-collector library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The evm-data-collector library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the evm-data-collector library. If not, see <http://www.gnu.org/licenses/>.

package contracts

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/tokenlytics/evm-data-collector/config"
	"github.com/tokenlytics/evm-data-collector/models"
)

// Registry resolves configured contract addresses to their category, event
// whitelist and a cached contract handle. Lookups are case-insensitive:
// everything is keyed by the lowercased address.
type Registry struct {
	abis    *ContractABI
	configs map[string]*config.ContractConfig

	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewRegistry builds the registry from the union of all configured
// contracts.
func NewRegistry(contracts []*config.ContractConfig, abis *ContractABI) *Registry {
	configs := make(map[string]*config.ContractConfig, len(contracts))
	for _, contract := range contracts {
		configs[strings.ToLower(contract.Address)] = contract
	}
	return &Registry{
		abis:    abis,
		configs: configs,
		handles: make(map[string]*Handle),
	}
}

// CategoryOf returns the configured category of an address.
func (r *Registry) CategoryOf(address string) (models.ContractCategory, bool) {
	if cfg, ok := r.configs[strings.ToLower(address)]; ok {
		return cfg.Category, true
	}
	return "", false
}

// AllowedEvents returns the whitelisted event names of an address.
func (r *Registry) AllowedEvents(address string) (map[string]bool, bool) {
	cfg, ok := r.configs[strings.ToLower(address)]
	if !ok {
		return nil, false
	}
	allowed := make(map[string]bool, len(cfg.Events))
	for _, name := range cfg.Events {
		allowed[name] = true
	}
	return allowed, true
}

// IsKnownAddress reports whether an address appears in the configuration.
func (r *Registry) IsKnownAddress(address string) bool {
	_, ok := r.configs[strings.ToLower(address)]
	return ok
}

// Handle returns the cached contract handle for an address, attaching the
// category's ABI on first use.
func (r *Registry) Handle(address string, category models.ContractCategory) (*Handle, error) {
	key := strings.ToLower(address)

	r.mu.RLock()
	handle, ok := r.handles[key]
	r.mu.RUnlock()
	if ok {
		return handle, nil
	}

	contractAbi, ok := r.abis.ForCategory(category)
	if !ok {
		return nil, errors.Errorf("no abi for category %q at address %s", category, address)
	}
	handle = NewHandle(address, contractAbi)

	r.mu.Lock()
	r.handles[key] = handle
	r.mu.Unlock()
	return handle, nil
}
