// Package inputs assembles the named, fixed-length field element arrays
// consumed by the register, dsc and disclose circuits, and decodes what the
// disclose circuit reveals.
package inputs

import (
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/field"
)

// Normalize renders v as decimal field elements. Single integers yield one
// element, byte buffers one element per byte and slices one element per
// item. Negative values and values not below the field modulus are
// rejected.
func Normalize(v any) ([]string, error) {
	var values []*big.Int
	switch x := v.(type) {
	case int:
		values = []*big.Int{big.NewInt(int64(x))}
	case int64:
		values = []*big.Int{big.NewInt(x)}
	case uint64:
		values = []*big.Int{new(big.Int).SetUint64(x)}
	case bool:
		values = []*big.Int{big.NewInt(0)}
		if x {
			values[0].SetInt64(1)
		}
	case *big.Int:
		values = []*big.Int{x}
	case big.Int:
		values = []*big.Int{&x}
	case field.Decimal:
		values = []*big.Int{x.Value()}
	case string:
		n, err := field.ParseDecimal(x)
		if err != nil {
			return nil, err
		}
		values = []*big.Int{n}
	case []byte:
		values = make([]*big.Int, len(x))
		for i, b := range x {
			values[i] = big.NewInt(int64(b))
		}
	case []int:
		values = make([]*big.Int, len(x))
		for i, n := range x {
			values[i] = big.NewInt(int64(n))
		}
	case []int64:
		values = make([]*big.Int, len(x))
		for i, n := range x {
			values[i] = big.NewInt(n)
		}
	case []*big.Int:
		values = x
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			n, err := Normalize(s)
			if err != nil {
				return nil, err
			}
			out = append(out, n...)
		}
		return out, nil
	case []any:
		var out []string
		for _, item := range x {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, n...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported input type %T", v)
	}

	out := make([]string, len(values))
	for i, n := range values {
		if err := field.Check(n); err != nil {
			return nil, err
		}
		out[i] = n.String()
	}
	return out, nil
}
