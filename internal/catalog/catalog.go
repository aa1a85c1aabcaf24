// Package catalog holds compiled-in reference/submission pairs. It stands in
// for the discovery pass: each Problem is an already resolved entry point.
package catalog

import (
	"sort"

	"parity/internal/descriptor"
)

// Problem is a named entry point plus whether its submission is expected to
// agree with the reference.
type Problem struct {
	Name        string
	Description string
	ExpectPass  bool
	EntryPoint  descriptor.EntryPoint
}

var problems = map[string]func() Problem{}

func register(name string, fn func() Problem) {
	if _, ok := problems[name]; ok {
		panic("catalog: duplicate problem " + name)
	}
	problems[name] = fn
}

// Lookup returns a fresh copy of the named problem.
func Lookup(name string) (Problem, bool) {
	fn, ok := problems[name]
	if !ok {
		return Problem{}, false
	}
	p := fn()
	p.Name = name
	p.EntryPoint.Name = name
	return p, true
}

// Names lists every problem in sorted order.
func Names() []string {
	names := make([]string, 0, len(problems))
	for name := range problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
