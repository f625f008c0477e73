package inputs

import (
	"encoding/json"
	"fmt"

	"github.com/consensys/gnark/backend/witness"

	"github.com/mynextid/zk-passport/field"
)

// Visibility of a circuit input
type Visibility int

const (
	Secret Visibility = iota
	Public
)

// Field is one named input array of fixed length
type Field struct {
	Name       string
	Len        int
	Visibility Visibility
}

// Layout lists the inputs of a circuit variant in declaration order
type Layout struct {
	Name   string
	Fields []Field
}

// Count returns the number of public and secret elements
func (l Layout) Count() (public, secret int) {
	for _, f := range l.Fields {
		if f.Visibility == Public {
			public += f.Len
		} else {
			secret += f.Len
		}
	}
	return public, secret
}

// CircuitInputs maps input names to decimal field elements
type CircuitInputs map[string][]string

// Set normalizes v and stores it under name
func (c CircuitInputs) Set(name string, v any) error {
	values, err := Normalize(v)
	if err != nil {
		return fmt.Errorf("input %s: %w", name, err)
	}
	c[name] = values
	return nil
}

// Validate checks that c holds exactly the fields of l with their lengths
func (c CircuitInputs) Validate(l Layout) error {
	for _, f := range l.Fields {
		values, ok := c[f.Name]
		if !ok {
			return fmt.Errorf("%s: missing input %s", l.Name, f.Name)
		}
		if len(values) != f.Len {
			return fmt.Errorf("%s: input %s has %d elements, expected %d", l.Name, f.Name, len(values), f.Len)
		}
		for i, v := range values {
			n, err := field.ParseDecimal(v)
			if err == nil {
				err = field.Check(n)
			}
			if err != nil {
				return fmt.Errorf("%s: input %s[%d]: %w", l.Name, f.Name, i, err)
			}
		}
	}
	if len(c) != len(l.Fields) {
		return fmt.Errorf("%s: %d inputs given, layout has %d", l.Name, len(c), len(l.Fields))
	}
	return nil
}

// Witness exports c as a BN254 gnark witness: public fields first, then
// secret fields, each group in layout order
func (c CircuitInputs) Witness(l Layout) (witness.Witness, error) {
	if err := c.Validate(l); err != nil {
		return nil, err
	}
	nbPublic, nbSecret := l.Count()
	w, err := witness.New(field.Modulus())
	if err != nil {
		return nil, err
	}

	values := make(chan any, nbPublic+nbSecret)
	for _, vis := range []Visibility{Public, Secret} {
		for _, f := range l.Fields {
			if f.Visibility != vis {
				continue
			}
			for _, v := range c[f.Name] {
				n, _ := field.ParseDecimal(v)
				values <- n
			}
		}
	}
	close(values)

	if err := w.Fill(nbPublic, nbSecret, values); err != nil {
		return nil, err
	}
	return w, nil
}

// MarshalIndent renders c as circom style JSON input
func (c CircuitInputs) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(map[string][]string(c), "", "  ")
}
