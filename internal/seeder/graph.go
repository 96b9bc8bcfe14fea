package seeder

import (
	"fmt"
	"sort"
)

type DependencyGraph struct {
	deps map[EntityType][]EntityType
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps: make(map[EntityType][]EntityType),
	}
}

// DefaultGraph is the FK and registry dependency graph of the schema. Shippers
// depend on customers and suppliers through their company names.
func DefaultGraph() *DependencyGraph {
	g := NewDependencyGraph()
	g.AddEntity(Customers)
	g.AddEntity(Employees, Employees)
	g.AddEntity(Orders, Customers, Employees)
	g.AddEntity(Suppliers)
	g.AddEntity(Products, Suppliers)
	g.AddEntity(OrderDetails, Orders, Products)
	g.AddEntity(Shippers, Customers, Suppliers)
	return g
}

func (g *DependencyGraph) AddEntity(entity EntityType, dependsOn ...EntityType) {
	g.deps[entity] = append(g.deps[entity], dependsOn...)
}

// Dependencies returns the upstream entities of entity, self-references excluded.
func (g *DependencyGraph) Dependencies(entity EntityType) []EntityType {
	var out []EntityType
	for _, dep := range g.deps[entity] {
		if dep != entity {
			out = append(out, dep)
		}
	}
	return out
}

// BuildInsertionOrder returns a topological order of the graph. Ties are broken
// by name so the result is stable.
func (g *DependencyGraph) BuildInsertionOrder() ([]EntityType, error) {
	visited := make(map[EntityType]bool)
	temp := make(map[EntityType]bool)
	var order []EntityType

	var visit func(EntityType) error
	visit = func(entity EntityType) error {
		if temp[entity] {
			return fmt.Errorf("circular dependency detected involving %s", entity)
		}
		if visited[entity] {
			return nil
		}

		temp[entity] = true
		for _, dep := range g.Dependencies(entity) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		temp[entity] = false
		visited[entity] = true
		order = append(order, entity)
		return nil
	}

	names := make([]EntityType, 0, len(g.deps))
	for entity := range g.deps {
		names = append(names, entity)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, entity := range names {
		if err := visit(entity); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ValidateOrder checks that every entity in order comes after all of its
// dependencies and that the order covers the whole graph.
func (g *DependencyGraph) ValidateOrder(order []EntityType) error {
	if _, err := g.BuildInsertionOrder(); err != nil {
		return err
	}

	position := make(map[EntityType]int, len(order))
	for i, entity := range order {
		if _, dup := position[entity]; dup {
			return fmt.Errorf("%w: %s appears twice in seed order", ErrRegistryPrecondition, entity)
		}
		position[entity] = i
	}

	for entity := range g.deps {
		if _, ok := position[entity]; !ok {
			return fmt.Errorf("%w: %s is missing from seed order", ErrRegistryPrecondition, entity)
		}
	}

	for _, entity := range order {
		for _, dep := range g.Dependencies(entity) {
			depIdx, ok := position[dep]
			if !ok || depIdx >= position[entity] {
				return fmt.Errorf("%w: %s must be seeded after %s", ErrRegistryPrecondition, entity, dep)
			}
		}
	}
	return nil
}
