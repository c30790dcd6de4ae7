// Package pantry holds the operations on an ingredient list. The list is
// owned by the caller; every function returns a new slice.
package pantry

import (
	"strings"

	"golang.org/x/text/cases"
)

// Key is the comparison key for an ingredient name. Casers are stateful, so
// one is built per call.
func Key(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// Split turns "egg, milk ,, rice" into ["egg" "milk" "rice"].
func Split(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Dedupe keeps the first spelling of every ingredient, preserving order.
func Dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, name := range list {
		name = strings.TrimSpace(name)
		k := Key(name)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, name)
	}
	return out
}

// Add appends names and drops duplicates.
func Add(list []string, names ...string) []string {
	merged := make([]string, 0, len(list)+len(names))
	merged = append(merged, list...)
	merged = append(merged, names...)
	return Dedupe(merged)
}

// Remove drops every entry matching name.
func Remove(list []string, name string) []string {
	k := Key(name)
	out := make([]string, 0, len(list))
	for _, n := range list {
		if Key(n) != k {
			out = append(out, n)
		}
	}
	return out
}
