package field

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Decimal is a big integer that travels through JSON as a decimal string.
// Plain JSON numbers are accepted on input.
type Decimal struct {
	*big.Int
}

// NewDecimal wraps v
func NewDecimal(v *big.Int) Decimal {
	return Decimal{Int: v}
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if d.Int == nil {
		return []byte(`null`), nil
	}
	return json.Marshal(d.Int.String())
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		d.Int = nil
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := ParseDecimal(s)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	d.Int = v
	return nil
}

// Value returns the wrapped integer or zero
func (d Decimal) Value() *big.Int {
	if d.Int == nil {
		return new(big.Int)
	}
	return d.Int
}
