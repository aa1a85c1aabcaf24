package catalog

import (
	"math/rand"
	"sort"
	"testing"
)

func TestProblemsValidate(t *testing.T) {
	names := Names()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("names not sorted: %v", names)
	}
	want := []string{"adder", "counter", "edge-cases", "faulty", "override-ctor", "sleeper", "standalone"}
	for _, name := range want {
		if _, ok := Lookup(name); !ok {
			t.Fatalf("missing problem %q", name)
		}
	}
	for _, name := range names {
		p, _ := Lookup(name)
		if p.Name != name || p.EntryPoint.Name != name {
			t.Fatalf("problem %q carries name %q/%q", name, p.Name, p.EntryPoint.Name)
		}
		if p.Description == "" {
			t.Fatalf("problem %q has no description", name)
		}
		if _, err := p.EntryPoint.Validate(); err != nil {
			t.Fatalf("problem %q: %v", name, err)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatalf("unexpected problem")
	}
}

func TestStaticTallies(t *testing.T) {
	ResetTallies()
	steps := []int{3, -2, 0, 7}
	for _, s := range steps {
		if RefNext(s) != SubNext(s) {
			t.Fatalf("tallies diverged at step %d", s)
		}
	}
	if RefNext(0) != 8 {
		t.Fatalf("unexpected tally %d", RefNext(0))
	}
	ResetTallies()
}

func TestGenerateDivisorRange(t *testing.T) {
	r := newRand(1)
	zeros := 0
	for i := 0; i < 400; i++ {
		v, err := GenerateDivisor(3, r)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		d := v.(Divisor)
		if d < -10 || d > 10 {
			t.Fatalf("divisor %d out of range", d)
		}
		if d == 0 {
			zeros++
		}
	}
	if zeros == 0 || zeros > 200 {
		t.Fatalf("unexpected zero count %d", zeros)
	}
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
