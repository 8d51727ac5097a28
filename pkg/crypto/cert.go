package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
)

// ConsoleCertificate is the subset of the console's self-signed X.509
// certificate the protocol cares about: the Live ID (commonName) and the
// ECDH public key from the subject public key info.
type ConsoleCertificate struct {
	LiveID    string
	PublicKey *ecdh.PublicKey
}

// ParseConsoleCertificate parses the DER blob carried in a
// DiscoveryResponse packet.
func ParseConsoleCertificate(der []byte) (*ConsoleCertificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	ecKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: subject key is not an EC key", ErrInvalidCertificate)
	}
	key, err := ecKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	return &ConsoleCertificate{
		LiveID:    cert.Subject.CommonName,
		PublicKey: key,
	}, nil
}
