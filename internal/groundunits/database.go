// Package groundunits is the ground unit reference data used to build IADS
// selection filters.
package groundunits

import "sort"

// Eras in chronological order.
var eraOrder = []string{"WW2", "Early Cold War", "Mid Cold War", "Late Cold War", "Modern"}

// Ranges from shortest to longest.
var rangeOrder = []string{"Short range", "Medium range", "Long range"}

// Blueprint describes one spawnable ground unit.
type Blueprint struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Era   string `json:"era"`
	Range string `json:"range"`
}

// Database is an immutable set of blueprints keyed by name.
type Database struct {
	blueprints map[string]Blueprint
}

// New builds a database from the given blueprints. Later duplicates win.
func New(blueprints []Blueprint) *Database {
	db := &Database{blueprints: make(map[string]Blueprint, len(blueprints))}
	for _, b := range blueprints {
		db.blueprints[b.Name] = b
	}
	return db
}

// Default returns the built-in database.
func Default() *Database {
	return New(builtin)
}

// Len returns the number of blueprints.
func (db *Database) Len() int {
	return len(db.blueprints)
}

// Get returns a blueprint by name.
func (db *Database) Get(name string) (Blueprint, bool) {
	b, ok := db.blueprints[name]
	return b, ok
}

// Eras returns the distinct eras present, oldest first. Unknown eras sort last
// alphabetically.
func (db *Database) Eras() []string {
	return db.distinct(func(b Blueprint) string { return b.Era }, eraOrder)
}

// Ranges returns the distinct ranges present, shortest first.
func (db *Database) Ranges() []string {
	return db.distinct(func(b Blueprint) string { return b.Range }, rangeOrder)
}

// Select returns the blueprints whose type, era and range are all enabled,
// sorted by name. A key missing from a filter counts as disabled.
func (db *Database) Select(types, eras, ranges map[string]bool) []Blueprint {
	var out []Blueprint
	for _, b := range db.blueprints {
		if types[b.Type] && eras[b.Era] && ranges[b.Range] {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (db *Database) distinct(field func(Blueprint) string, order []string) []string {
	seen := make(map[string]bool)
	for _, b := range db.blueprints {
		if v := field(b); v != "" {
			seen[v] = true
		}
	}

	rank := make(map[string]int, len(order))
	for i, v := range order {
		rank[v] = i
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}
