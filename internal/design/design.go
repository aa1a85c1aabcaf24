// Package design compares the exported surface of a reference type with a
// submission type: kind, exported methods and exported fields. References to
// the type itself are normalized to Self so that a method returning its own
// receiver type matches across the two sides.
package design

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Mismatch is one surface difference.
type Mismatch struct {
	Tag      string `json:"tag"`
	Name     string `json:"name,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// String implements fmt.Stringer.
func (m Mismatch) String() string {
	if m.Name == "" {
		return fmt.Sprintf("%s: expected %s, got %s", m.Tag, m.Expected, m.Actual)
	}
	return fmt.Sprintf("%s %s: expected %s, got %s", m.Tag, m.Name, m.Expected, m.Actual)
}

// Report lists every difference found.
type Report struct {
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Matched reports whether the surfaces are identical.
func (r Report) Matched() bool {
	return len(r.Mismatches) == 0
}

// String joins the mismatches, one per line.
func (r Report) String() string {
	lines := make([]string, len(r.Mismatches))
	for i, m := range r.Mismatches {
		lines[i] = m.String()
	}
	return strings.Join(lines, "\n")
}

// Options selects which checks run.
type Options struct {
	// Names also compares the type names.
	Names bool
}

// Compare checks that sub exposes the same surface as ref.
func Compare(ref, sub reflect.Type) Report {
	return CompareWith(ref, sub, Options{})
}

// CompareWith is Compare with explicit options.
func CompareWith(ref, sub reflect.Type, opts Options) Report {
	var rep Report
	add := func(tag, name, expected, actual string) {
		rep.Mismatches = append(rep.Mismatches, Mismatch{Tag: tag, Name: name, Expected: expected, Actual: actual})
	}
	if ref == nil || sub == nil {
		add("type", "", fmt.Sprint(ref), fmt.Sprint(sub))
		return rep
	}
	if opts.Names && base(ref).Name() != base(sub).Name() {
		add("name", "", base(ref).Name(), base(sub).Name())
	}
	if ref.Kind() != sub.Kind() || base(ref).Kind() != base(sub).Kind() {
		add("kind", "", render(ref, ref), render(sub, sub))
		return rep
	}
	compareSets("method", methods(ref), methods(sub), add)
	compareSets("field", fields(ref), fields(sub), add)
	return rep
}

func compareSets(tag string, want, got map[string]string, add func(tag, name, expected, actual string)) {
	names := make(map[string]struct{}, len(want)+len(got))
	for n := range want {
		names[n] = struct{}{}
	}
	for n := range got {
		names[n] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	for _, n := range sorted {
		w, wok := want[n]
		g, gok := got[n]
		switch {
		case !gok:
			add(tag, n, w, "missing")
		case !wok:
			add(tag, n, "absent", g)
		case w != g:
			add(tag, n, w, g)
		}
	}
}

func methods(t reflect.Type) map[string]string {
	out := make(map[string]string, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		out[m.Name] = renderFunc(m.Type, t, 1)
	}
	return out
}

func fields(t reflect.Type) map[string]string {
	st := base(t)
	out := make(map[string]string)
	if st.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		out[f.Name] = render(f.Type, t)
	}
	return out
}

func base(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// render prints t with self and its element type replaced by Self.
func render(t, self reflect.Type) string {
	if t == base(self) {
		return "Self"
	}
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + render(t.Elem(), self)
	case reflect.Slice:
		return "[]" + render(t.Elem(), self)
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), render(t.Elem(), self))
	case reflect.Map:
		return "map[" + render(t.Key(), self) + "]" + render(t.Elem(), self)
	case reflect.Chan:
		return t.ChanDir().String() + " " + render(t.Elem(), self)
	case reflect.Func:
		return renderFunc(t, self, 0)
	default:
		return t.String()
	}
}

func renderFunc(t, self reflect.Type, skip int) string {
	in := make([]string, 0, t.NumIn())
	for i := skip; i < t.NumIn(); i++ {
		in = append(in, render(t.In(i), self))
	}
	out := make([]string, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		out = append(out, render(t.Out(i), self))
	}
	sig := "func(" + strings.Join(in, ", ") + ")"
	switch len(out) {
	case 0:
		return sig
	case 1:
		return sig + " " + out[0]
	default:
		return sig + " (" + strings.Join(out, ", ") + ")"
	}
}
