package oids

import (
	_ "embed"
	"strings"
)

//go:embed passport.cfg
var passportCfg string

// DefaultRegistry knows the OIDs found in ICAO document signer and CSCA
// certificates and in passport security objects
var DefaultRegistry = mustParse(passportCfg)

func mustParse(cfg string) *Registry {
	r, err := ParseFile(strings.NewReader(cfg))
	if err != nil {
		panic("oids: embedded registry: " + err.Error())
	}
	return r
}
