// Package entities defines the CRUD contract the engine holds against the
// POS domain data store. The store itself lives outside the engine; update
// and create actions depend only on this interface.
package entities

import (
	"context"
	"errors"
	"strings"
)

// Kind enumerates the entity kinds update/create actions may target.
type Kind string

const (
	KindSale     Kind = "sale"
	KindProduct  Kind = "product"
	KindCustomer Kind = "customer"
	KindEmployee Kind = "employee"
	KindStore    Kind = "store"
	KindUser     Kind = "user"
)

var kinds = map[Kind]struct{}{
	KindSale:     {},
	KindProduct:  {},
	KindCustomer: {},
	KindEmployee: {},
	KindStore:    {},
	KindUser:     {},
}

var (
	ErrNotFound    = errors.New("entity not found")
	ErrUnknownKind = errors.New("unknown entity kind")
)

// Entity is a loosely typed domain record.
type Entity map[string]any

// ParseKind resolves a kind name case-insensitively.
func ParseKind(name string) (Kind, error) {
	kind := Kind(strings.ToLower(name))
	if _, ok := kinds[kind]; !ok {
		return "", ErrUnknownKind
	}

	return kind, nil
}

// Store is the external CRUD contract: load by id, shallow-merge update by
// id, create. Update and Find return ErrNotFound for missing ids.
type Store interface {
	Find(ctx context.Context, kind Kind, id string) (Entity, error)
	Update(ctx context.Context, kind Kind, id string, patch map[string]any) (Entity, error)
	Create(ctx context.Context, kind Kind, data map[string]any) (Entity, error)
}
