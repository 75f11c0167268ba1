package org

import (
	"context"
	"fmt"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/cache"
)

const (
	KindDepartment = "department"
	KindReporting  = "reporting"
)

// EdgeSource loads the full edge list of one tenant.
type EdgeSource interface {
	Edges(ctx context.Context, tenantID string) ([]Edge, error)
}

// EdgeSourceFunc adapts a function to EdgeSource.
type EdgeSourceFunc func(ctx context.Context, tenantID string) ([]Edge, error)

func (fn EdgeSourceFunc) Edges(ctx context.Context, tenantID string) ([]Edge, error) {
	return fn(ctx, tenantID)
}

type CacheObserver interface {
	CacheLookup(kind string, hit bool)
}

// Resolver answers descendants(node) over one forest with a per-root cache.
type Resolver struct {
	kind     string
	source   EdgeSource
	cache    cache.Store
	maxDepth int
	observer CacheObserver
}

func NewResolver(kind string, source EdgeSource, store cache.Store, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{kind: kind, source: source, cache: store, maxDepth: maxDepth}
}

func (r *Resolver) WithObserver(observer CacheObserver) *Resolver {
	r.observer = observer
	return r
}

func (r *Resolver) key(tenantID, nodeID string) string {
	return r.kind + ":" + tenantID + ":" + nodeID
}

func (r *Resolver) Descendants(ctx context.Context, tenantID, nodeID string) ([]string, error) {
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	key := r.key(tenantID, nodeID)
	if r.cache != nil {
		if ids, ok := r.cache.Get(ctx, key); ok {
			r.observe(true)
			return ids, nil
		}
	}
	r.observe(false)

	forest, err := r.Forest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ids := forest.Descendants(nodeID, r.maxDepth)
	if r.cache != nil {
		r.cache.Set(ctx, key, ids)
	}
	return ids, nil
}

// Subtree returns nodeID followed by its descendants.
func (r *Resolver) Subtree(ctx context.Context, tenantID, nodeID string) ([]string, error) {
	ids, err := r.Descendants(ctx, tenantID, nodeID)
	if err != nil {
		return nil, err
	}
	return append([]string{nodeID}, ids...), nil
}

func (r *Resolver) Forest(ctx context.Context, tenantID string) (*Forest, error) {
	edges, err := r.source.Edges(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load %s edges: %w", r.kind, err)
	}
	return NewForest(edges), nil
}

// CreatesCycle reports whether attaching nodeID under parentID would make
// nodeID its own ancestor. It reads the edges directly, not the capped cache.
func (r *Resolver) CreatesCycle(ctx context.Context, tenantID, nodeID, parentID string) (bool, error) {
	if parentID == "" {
		return false, nil
	}
	if parentID == nodeID {
		return true, nil
	}
	forest, err := r.Forest(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return forest.IsAncestor(nodeID, parentID), nil
}

// AffectedRoots lists the cache roots whose entries may include nodeID.
func (r *Resolver) AffectedRoots(ctx context.Context, tenantID, nodeID string) ([]string, error) {
	forest, err := r.Forest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return append([]string{nodeID}, forest.Ancestors(nodeID, r.maxDepth)...), nil
}

// Invalidate drops the entries for roots. With no roots the whole cache is purged.
func (r *Resolver) Invalidate(ctx context.Context, tenantID string, roots ...string) {
	if r.cache == nil {
		return
	}
	if len(roots) == 0 || tenantID == "" {
		r.cache.Purge(ctx)
		return
	}
	keys := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			r.cache.Purge(ctx)
			return
		}
		keys = append(keys, r.key(tenantID, root))
	}
	r.cache.Invalidate(ctx, keys...)
}

func (r *Resolver) observe(hit bool) {
	if r.observer != nil {
		r.observer.CacheLookup(r.kind, hit)
	}
}
