package generator

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
	"time"

	"parity/internal/util"

	"github.com/pkg/errors"
)

var timeType = reflect.TypeOf(time.Time{})

const (
	epochYear = 1970
	// maxIntBound keeps 2*bound+1 inside int64.
	maxIntBound = int64(1) << 61
)

// Character classes for default strings, picked by weight.
var (
	runeClasses = [][]rune{
		[]rune("abcdefghijklmnopqrstuvwxyz"),
		[]rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ"),
		[]rune("0123456789"),
		[]rune(" .,;:-_!?'\"()[]{}"),
		[]rune("éßøλжあ中😀"),
	}
	runeClassWeights = []int{6, 2, 2, 1, 1}
)

// Bound returns the magnitude bound of numeric defaults at complexity c.
// It is c squared, so round 0 only produces zero.
func Bound(c int) int64 {
	if c <= 0 {
		return 0
	}
	b := int64(c) * int64(c)
	if b > maxIntBound || b < 0 {
		return maxIntBound
	}
	return b
}

func (g *Registry) generateDefault(t reflect.Type, c int, r *rand.Rand, depth int) (reflect.Value, error) {
	if t == timeType {
		span := int(Bound(c))
		if span > 400 {
			span = 400
		}
		return reflect.ValueOf(util.RandDate(r, epochYear, span)), nil
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		out.SetBool(c > 0 && r.Intn(2) == 1)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bound := clampSigned(Bound(c), t.Bits())
		out.SetInt(r.Int63n(2*bound+1) - bound)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		bound := clampUnsigned(Bound(c), t.Bits())
		out.SetUint(uint64(r.Int63n(bound + 1)))
	case reflect.Float32, reflect.Float64:
		out.SetFloat(randFloat(c, r))
	case reflect.Complex64, reflect.Complex128:
		out.SetComplex(complex(randFloat(c, r), randFloat(c, r)))
	case reflect.String:
		out.SetString(randString(c, r))
	case reflect.Ptr:
		// Nested pointers thin out as depth grows so recursive types terminate.
		if depth >= g.maxDepth || (depth > 0 && util.Chance(r, 100/(c+1))) {
			return out, nil
		}
		elem, err := g.generate(t.Elem(), c, r, depth+1)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		out.Set(p)
	case reflect.Slice:
		if depth >= g.maxDepth {
			return reflect.MakeSlice(t, 0, 0), nil
		}
		n := r.Intn(c + 1)
		s := reflect.MakeSlice(t, n, n)
		for i := 0; i < n; i++ {
			elem, err := g.generate(t.Elem(), c, r, depth+1)
			if err != nil {
				return reflect.Value{}, err
			}
			s.Index(i).Set(elem)
		}
		out.Set(s)
	case reflect.Array:
		for i := 0; i < t.Len(); i++ {
			elem, err := g.generate(t.Elem(), c, r, depth+1)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
	case reflect.Map:
		if depth >= g.maxDepth {
			return reflect.MakeMap(t), nil
		}
		n := r.Intn(c + 1)
		m := reflect.MakeMapWithSize(t, n)
		for i := 0; i < n; i++ {
			k, err := g.generate(t.Key(), c, r, depth+1)
			if err != nil {
				return reflect.Value{}, err
			}
			v, err := g.generate(t.Elem(), c, r, depth+1)
			if err != nil {
				return reflect.Value{}, err
			}
			m.SetMapIndex(k, v)
		}
		out.Set(m)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fv, err := g.generate(f.Type, c, r, depth+1)
			if err != nil {
				return reflect.Value{}, errors.Wrapf(err, "field %s.%s", t, f.Name)
			}
			out.Field(i).Set(fv)
		}
	default:
		return reflect.Value{}, errors.Wrapf(ErrNoGenerator, "type %s", t)
	}
	return out, nil
}

func clampSigned(bound int64, bits int) int64 {
	limit := int64(math.MaxInt64)
	if bits < 64 {
		limit = int64(1)<<(bits-1) - 1
	}
	if limit > maxIntBound {
		limit = maxIntBound
	}
	if bound > limit {
		return limit
	}
	return bound
}

func clampUnsigned(bound int64, bits int) int64 {
	if bits < 63 {
		if limit := int64(1)<<bits - 1; bound > limit {
			return limit
		}
	}
	return bound
}

func randFloat(c int, r *rand.Rand) float64 {
	bound := float64(Bound(c))
	if bound == 0 {
		return 0
	}
	return (r.Float64()*2 - 1) * bound
}

func randString(c int, r *rand.Rand) string {
	n := r.Intn(c + 1)
	if n == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		class := runeClasses[util.PickWeighted(r, runeClassWeights)]
		b.WriteRune(class[r.Intn(len(class))])
	}
	return b.String()
}
