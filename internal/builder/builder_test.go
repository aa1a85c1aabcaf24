package builder

import (
	"math/rand"
	"reflect"
	"testing"

	"parity/internal/descriptor"

	"github.com/pkg/errors"
)

type widget struct {
	Size  int
	ready bool
}

type gadget struct {
	Size int
}

func widgetFactory(complexity int, r *rand.Rand) (any, error) {
	return &widget{Size: complexity*100 + r.Intn(100), ready: true}, nil
}

func gadgetFactory(complexity int, r *rand.Rand) (any, error) {
	return &gadget{Size: complexity*100 + r.Intn(100)}, nil
}

func TestBuildDefault(t *testing.T) {
	b := New()
	v, err := b.Build(descriptor.Class{Type: reflect.TypeOf(&widget{})}, 3, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	w := v.Interface().(*widget)
	if w == nil || w.Size != 0 || w.ready {
		t.Fatalf("expected zero widget, got %+v", w)
	}

	c := descriptor.Class{
		Type:         reflect.TypeOf(&widget{}),
		Construction: descriptor.Construction{New: func() any { return &widget{ready: true} }},
	}
	v, err = b.Build(c, 0, nil)
	if err != nil {
		t.Fatalf("build with constructor: %v", err)
	}
	if !v.Interface().(*widget).ready {
		t.Fatalf("constructor not used")
	}
}

func TestBuildDesignatedNeverFallsBack(t *testing.T) {
	b := New()
	c := descriptor.Class{
		Type: reflect.TypeOf(&widget{}),
		Construction: descriptor.Construction{
			Kind:          descriptor.DesignatedConstruction,
			New:           func() any { panic("default constructor must not be used") },
			Designated:    widgetFactory,
			DefaultUnsafe: true,
		},
	}
	v, err := b.Build(c, 2, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if w := v.Interface().(*widget); !w.ready || w.Size < 200 || w.Size >= 300 {
		t.Fatalf("designated factory not used: %+v", w)
	}
}

func TestBuildSameSeedBothSides(t *testing.T) {
	b := New()
	ref := descriptor.Class{Type: reflect.TypeOf(&widget{}), Construction: descriptor.Construction{Kind: descriptor.DesignatedConstruction, Designated: widgetFactory}}
	sub := descriptor.Class{Type: reflect.TypeOf(&gadget{}), Construction: descriptor.Construction{Kind: descriptor.DesignatedConstruction, Designated: gadgetFactory}}
	rv, err := b.Build(ref, 4, rand.New(rand.NewSource(77)))
	if err != nil {
		t.Fatalf("build ref: %v", err)
	}
	sv, err := b.Build(sub, 4, rand.New(rand.NewSource(77)))
	if err != nil {
		t.Fatalf("build sub: %v", err)
	}
	if rv.Interface().(*widget).Size != sv.Interface().(*gadget).Size {
		t.Fatalf("same seed produced different receivers")
	}
}

func TestBuildFailures(t *testing.T) {
	b := New()
	cases := []struct {
		name  string
		class descriptor.Class
		want  error
	}{
		{
			name:  "unsafe default",
			class: descriptor.Class{Type: reflect.TypeOf(&widget{}), Construction: descriptor.Construction{DefaultUnsafe: true}},
			want:  ErrUnsafeDefault,
		},
		{
			name:  "wrong type",
			class: descriptor.Class{Type: reflect.TypeOf(&widget{}), Construction: descriptor.Construction{Kind: descriptor.DesignatedConstruction, Designated: gadgetFactory}},
			want:  ErrConstruction,
		},
		{
			name:  "panicking constructor",
			class: descriptor.Class{Type: reflect.TypeOf(&widget{}), Construction: descriptor.Construction{New: func() any { panic("nope") }}},
			want:  ErrConstruction,
		},
		{
			name:  "nil result",
			class: descriptor.Class{Type: reflect.TypeOf(&widget{}), Construction: descriptor.Construction{New: func() any { return (*widget)(nil) }}},
			want:  ErrConstruction,
		},
		{
			name:  "factory error",
			class: descriptor.Class{Type: reflect.TypeOf(&widget{}), Construction: descriptor.Construction{Kind: descriptor.DesignatedConstruction, Designated: func(int, *rand.Rand) (any, error) { return nil, errors.New("bad") }}},
			want:  ErrConstruction,
		},
	}
	for _, c := range cases {
		_, err := b.Build(c.class, 1, rand.New(rand.NewSource(1)))
		if !errors.Is(err, c.want) {
			t.Fatalf("%s: got %v want %v", c.name, err, c.want)
		}
	}
}
