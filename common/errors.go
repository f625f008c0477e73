package common

import "errors"

// Error taxonomy shared by all packages. Callers wrap these with
// fmt.Errorf("%w: ...") and match them with errors.Is.
var (
	// ErrMalformedCertificate is returned when PEM or DER decoding fails
	ErrMalformedCertificate = errors.New("malformed certificate")
	// ErrUnsupportedSignatureAlgorithm is returned for unknown OIDs or unhandled families
	ErrUnsupportedSignatureAlgorithm = errors.New("unsupported signature algorithm")
	// ErrHashLocationMismatch means an expected digest was not found where the
	// passport layout says it should be
	ErrHashLocationMismatch = errors.New("hash location mismatch")
	// ErrIntegerTooLarge means a value does not fit its word decomposition
	ErrIntegerTooLarge = errors.New("integer too large")
	// ErrCommitmentNotFound is a registry tree lookup miss
	ErrCommitmentNotFound = errors.New("commitment not found")
	// ErrInvalidProofLevel is returned for an undefined watchlist level
	ErrInvalidProofLevel = errors.New("invalid proof level")

	ErrNotParsed        = errors.New("passport data not parsed")
	ErrPaddingOverflow  = errors.New("message does not fit the padded buffer")
	ErrTooManyElements  = errors.New("too many elements")
	ErrCSCANotResolved  = errors.New("csca certificate not resolved")
	ErrTreeFull         = errors.New("tree is full")
	ErrFieldOverflow    = errors.New("value is not a field element")
	ErrInvalidMRZ       = errors.New("invalid mrz")
	ErrInvalidSignature = errors.New("invalid signature")
)
