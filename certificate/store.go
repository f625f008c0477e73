package certificate

import (
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/logger"
)

// Store holds CSCA certificates by subject key identifier
type Store struct {
	mu    sync.RWMutex
	certs map[string]*Certificate
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		certs: make(map[string]*Certificate),
	}
}

// Add registers a certificate under its subject key identifier
func (s *Store) Add(c *Certificate) error {
	if c.SubjectKeyID == "" {
		return fmt.Errorf("certificate %q has no subject key identifier", c.Subject.CommonName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[strings.ToLower(c.SubjectKeyID)] = c
	return nil
}

// Get returns the certificate with the given subject key identifier
func (s *Store) Get(ski string) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.certs[strings.ToLower(ski)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: no csca with key id %s", common.ErrCSCANotResolved, ski)
}

// Issuer finds the CSCA that issued dsc, by authority key identifier
func (s *Store) Issuer(dsc *Certificate) (*Certificate, error) {
	if dsc.AuthorityKeyID == "" {
		return nil, fmt.Errorf("%w: certificate has no authority key identifier", common.ErrCSCANotResolved)
	}
	return s.Get(dsc.AuthorityKeyID)
}

// Len returns the number of certificates
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certs)
}

// LoadPEM adds every CERTIFICATE block of a PEM bundle. Entries that fail to
// parse are logged and skipped.
func (s *Store) LoadPEM(data []byte) (int, error) {
	added := 0
	for i := 0; ; i++ {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := ParseDER(block.Bytes)
		if err != nil {
			logger.Logger().Warn().Err(err).Int("entry", i).Msg("skipping csca certificate")
			continue
		}
		if err := s.Add(c); err != nil {
			logger.Logger().Warn().Err(err).Int("entry", i).Msg("skipping csca certificate")
			continue
		}
		added++
	}
	if added == 0 {
		return 0, fmt.Errorf("%w: bundle contains no usable certificates", common.ErrMalformedCertificate)
	}
	logger.Logger().Debug().Int("certificates", added).Msg("loaded csca bundle")
	return added, nil
}

// LoadFile reads a PEM bundle from disk
func (s *Store) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read csca bundle: %w", err)
	}
	return s.LoadPEM(data)
}
