// Package storage contains an extensible interface for providing persistence
// to the storefront's services.
//
// Stores provide simple create, read, update, delete, and list operations.
// Models are represented as structs and should have a `PK() string` method.
//
// Examples:
//
//	registry.Register(storage.Plugin(memorystore.New()))
//
//	func (s *OrderService) Init(ctx context.Context, r *storefront.Registry) error {
//	  s.store = r.Get(storage.PluginName).(storage.Store)
//	}
package storage

import "github.com/dpup/storefront"

// PluginName can be used to query the storage plugin.
const PluginName = "storage"

// Plugin wraps a storage implementation for registration.
func Plugin(impl Store) storefront.Plugin {
	return &wrapper{Store: impl}
}

type wrapper struct {
	Store
}

func (p *wrapper) Name() string {
	return PluginName
}
