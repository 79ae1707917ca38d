// Package populate builds model values filled with pseudo-random data.
//
// Every exported field of a struct is assigned, recursively. Pointers are
// allocated and slices and maps always hold at least one element, so the
// top level fields of a populated struct are never nil.
package populate

import (
	"fmt"
	"math/rand/v2"
	"reflect"

	"github.com/takumakei/modelsnap-go/schema"
)

const (
	DefaultMaxDepth     = 4
	DefaultMinSize      = 1
	DefaultMaxSize      = 4
	DefaultStringLength = 10
)

// Func returns a random value for a single type. The value must be
// assignable to that type.
type Func func(r *rand.Rand) any

// Populator generates random values.
type Populator struct {
	rand        *rand.Rand
	maxDepth    int
	minSize     int
	maxSize     int
	strLen      int
	randomizers map[reflect.Type]Func
}

// Option configures a Populator.
type Option func(*Populator)

// WithSeed makes the generated values reproducible.
func WithSeed(seed int64) Option {
	return func(p *Populator) {
		p.rand = rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	}
}

// WithMaxDepth limits how many pointers, sequences and maps are followed.
// Past the limit, slices and maps are empty and pointers are nil.
func WithMaxDepth(n int) Option {
	return func(p *Populator) {
		p.maxDepth = max(n, 1)
	}
}

// WithSizeRange sets the number of elements of generated slices and maps.
func WithSizeRange(minSize, maxSize int) Option {
	return func(p *Populator) {
		p.minSize = max(minSize, 1)
		p.maxSize = max(maxSize, p.minSize)
	}
}

// WithStringLength sets the length of generated strings.
func WithStringLength(n int) Option {
	return func(p *Populator) {
		p.strLen = max(n, 1)
	}
}

// WithRandomizer registers fn for values of type t.
func WithRandomizer(t reflect.Type, fn Func) Option {
	return func(p *Populator) {
		p.randomizers[t] = fn
	}
}

// New returns a Populator. Without [WithSeed] it is seeded randomly.
func New(opts ...Option) *Populator {
	p := &Populator{
		maxDepth:    DefaultMaxDepth,
		minSize:     DefaultMinSize,
		maxSize:     DefaultMaxSize,
		strLen:      DefaultStringLength,
		randomizers: defaultRandomizers(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rand == nil {
		p.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p
}

// Random returns a populated value of type T.
func Random[T any](p *Populator) (T, error) {
	var zero T
	v, err := p.Value(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// Value returns a populated value of type t.
func (p *Populator) Value(t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if err := p.fill(v, t.String(), 0); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func (p *Populator) fill(v reflect.Value, path string, depth int) error {
	t := v.Type()
	if fn, ok := p.randomizers[t]; ok {
		rv := reflect.ValueOf(fn(p.rand))
		if !rv.IsValid() || !rv.Type().AssignableTo(t) {
			return fmt.Errorf("populate: %s: randomizer for %s returned %v", path, t, rv.Kind())
		}
		v.Set(rv)
		return nil
	}
	if schema.KindOf(t) == schema.Enumeration && t.Kind() != reflect.Pointer {
		return p.fillEnum(v, path)
	}

	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(p.rand.IntN(2) == 1)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(p.rand.Uint64()) >> (64 - t.Bits()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(p.rand.Uint64() >> (64 - t.Bits()))
	case reflect.Float32, reflect.Float64:
		v.SetFloat(p.rand.Float64() * 1e6)
	case reflect.String:
		v.SetString(p.Text())
	case reflect.Pointer:
		if depth >= p.maxDepth {
			return nil
		}
		e := reflect.New(t.Elem())
		if err := p.fill(e.Elem(), path, depth+1); err != nil {
			return err
		}
		v.Set(e)
	case reflect.Struct:
		return p.fillStruct(v, path, depth)
	case reflect.Array:
		for i := range v.Len() {
			if err := p.fill(v.Index(i), fmt.Sprintf("%s[%d]", path, i), depth); err != nil {
				return err
			}
		}
	case reflect.Slice:
		if depth >= p.maxDepth {
			v.Set(reflect.MakeSlice(t, 0, 0))
			return nil
		}
		n := p.size()
		s := reflect.MakeSlice(t, n, n)
		for i := range n {
			if err := p.fill(s.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
				return err
			}
		}
		v.Set(s)
	case reflect.Map:
		m := reflect.MakeMap(t)
		if depth < p.maxDepth {
			for range p.size() {
				key := reflect.New(t.Key()).Elem()
				if err := p.fill(key, path+"[key]", depth+1); err != nil {
					return err
				}
				val := reflect.New(t.Elem()).Elem()
				if err := p.fill(val, path+"[value]", depth+1); err != nil {
					return err
				}
				m.SetMapIndex(key, val)
			}
		}
		v.Set(m)
	default:
		return fmt.Errorf("populate: %s: unsupported kind %s", path, t.Kind())
	}
	return nil
}

func (p *Populator) fillStruct(v reflect.Value, path string, depth int) error {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
				if err := p.fillStruct(v.Field(i), path+"."+sf.Name, depth); err != nil {
					return err
				}
			}
			continue
		}
		if sf.Tag.Get("json") == "-" {
			continue
		}
		if err := p.fill(v.Field(i), path+"."+sf.Name, depth); err != nil {
			return err
		}
	}
	return nil
}

func (p *Populator) fillEnum(v reflect.Value, path string) error {
	t := v.Type()
	values := schema.EnumValues(t)
	if len(values) == 0 {
		return fmt.Errorf("populate: %s: enumeration %s has no values", path, t)
	}
	rv := reflect.ValueOf(values[p.rand.IntN(len(values))])
	if !rv.IsValid() || !rv.Type().ConvertibleTo(t) {
		return fmt.Errorf("populate: %s: enumeration value %v is not a %s", path, rv, t)
	}
	v.Set(rv.Convert(t))
	return nil
}

func (p *Populator) size() int {
	return p.minSize + p.rand.IntN(p.maxSize-p.minSize+1)
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Text returns a random alphanumeric string.
func (p *Populator) Text() string {
	b := make([]byte, p.strLen)
	for i := range b {
		b[i] = letters[p.rand.IntN(len(letters))]
	}
	return string(b)
}
