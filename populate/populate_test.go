package populate_test

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumakei/modelsnap-go/populate"
)

type Status string

func (Status) EnumValues() []any { return []any{"OPEN", "CLOSED"} }

type Address struct {
	Street string
	Zip    *int
}

type Node struct {
	Name string
	Next *Node
	Kids []*Node
}

type Order struct {
	ID       uuid.UUID
	Status   Status
	Total    decimal.Decimal
	Placed   time.Time
	Lines    []Address
	Codes    [3]uint8
	Meta     map[string]int
	Shipping *Address
	Flag     bool
	Ratio    float32
	Skipped  string `json:"-"`
	private  string
}

func TestRandomFillsEveryField(t *testing.T) {
	p := populate.New(populate.WithSeed(1))
	o, err := populate.Random[Order](p)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Contains(t, []Status{"OPEN", "CLOSED"}, o.Status)
	assert.True(t, o.Total.Exponent() == -2)
	assert.False(t, o.Placed.IsZero())
	assert.NotEmpty(t, o.Lines)
	for _, l := range o.Lines {
		assert.Len(t, l.Street, populate.DefaultStringLength)
		assert.NotNil(t, l.Zip)
	}
	assert.NotEmpty(t, o.Meta)
	require.NotNil(t, o.Shipping)
	assert.NotNil(t, o.Shipping.Zip)
	assert.Empty(t, o.Skipped)
	assert.Empty(t, o.private)
}

func TestSeedIsReproducible(t *testing.T) {
	a, err := populate.Random[Order](populate.New(populate.WithSeed(42)))
	require.NoError(t, err)
	b, err := populate.Random[Order](populate.New(populate.WithSeed(42)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMaxDepth(t *testing.T) {
	p := populate.New(populate.WithSeed(7), populate.WithMaxDepth(2), populate.WithSizeRange(1, 1))
	n, err := populate.Random[Node](p)
	require.NoError(t, err)

	require.NotNil(t, n.Next)
	require.NotNil(t, n.Kids)
	require.Len(t, n.Kids, 1)
	require.NotNil(t, n.Next.Next)
	assert.Nil(t, n.Next.Next.Next)
	assert.NotNil(t, n.Next.Next.Kids)
	assert.Empty(t, n.Next.Next.Kids)
}

func TestSizeRange(t *testing.T) {
	p := populate.New(populate.WithSizeRange(3, 3))
	v, err := populate.Random[[]int](p)
	require.NoError(t, err)
	assert.Len(t, v, 3)
}

func TestWithRandomizer(t *testing.T) {
	p := populate.New(populate.WithRandomizer(reflect.TypeFor[string](), func(*rand.Rand) any { return "fixed" }))
	a, err := populate.Random[Address](p)
	require.NoError(t, err)
	assert.Equal(t, "fixed", a.Street)
}

func TestUnsupportedKind(t *testing.T) {
	type withFunc struct{ F func() }
	_, err := populate.Random[withFunc](populate.New())
	assert.ErrorContains(t, err, "unsupported kind func")

	type withAny struct{ V any }
	_, err = populate.Random[withAny](populate.New())
	assert.ErrorContains(t, err, ".V")
}

func ExamplePopulator_Text() {
	p := populate.New(populate.WithSeed(3), populate.WithStringLength(4))
	fmt.Println(len(p.Text()))
	// Output:
	// 4
}
