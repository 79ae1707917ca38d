package populate

import (
	"math/rand/v2"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxUnix is 2100-01-01T00:00:00Z.
const maxUnix = 4102444800

func defaultRandomizers() map[reflect.Type]Func {
	return map[reflect.Type]Func{
		reflect.TypeFor[time.Time](): func(r *rand.Rand) any {
			return time.Unix(r.Int64N(maxUnix), 0).UTC()
		},
		reflect.TypeFor[uuid.UUID](): func(r *rand.Rand) any {
			id, err := uuid.NewRandomFromReader(reader{r})
			if err != nil {
				panic(err) // reader never fails
			}
			return id
		},
		reflect.TypeFor[decimal.Decimal](): func(r *rand.Rand) any {
			return decimal.New(r.Int64N(100_000_000), -2)
		},
	}
}

type reader struct{ r *rand.Rand }

func (rd reader) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = byte(rd.r.Uint32())
	}
	return len(b), nil
}
