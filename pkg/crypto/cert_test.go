package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

// selfSignedConsoleCert builds a DER certificate shaped like the one a
// console returns in its DiscoveryResponse: EC key, Live ID as CN.
func selfSignedConsoleCert(t *testing.T, liveID string) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating cert key: %v", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: liveID},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	return der, key
}

func TestParseConsoleCertificate(t *testing.T) {
	const liveID = "FD0000123456789"
	der, key := selfSignedConsoleCert(t, liveID)

	cert, err := ParseConsoleCertificate(der)
	if err != nil {
		t.Fatalf("ParseConsoleCertificate() error: %v", err)
	}
	if cert.LiveID != liveID {
		t.Errorf("LiveID = %q, want %q", cert.LiveID, liveID)
	}

	wantKey, err := key.PublicKey.ECDH()
	if err != nil {
		t.Fatal(err)
	}
	if !cert.PublicKey.Equal(wantKey) {
		t.Error("extracted public key does not match the certificate key")
	}

	// The extracted key must feed a crypto context.
	ctx, err := FromECDHKey(cert.PublicKey)
	if err != nil {
		t.Fatalf("FromECDHKey() error: %v", err)
	}
	if ctx.PublicKeyType() != PublicKeyTypeP256 {
		t.Errorf("PublicKeyType = %v, want P256", ctx.PublicKeyType())
	}
}

func TestParseConsoleCertificateRejectsGarbage(t *testing.T) {
	if _, err := ParseConsoleCertificate([]byte{0x30, 0x00}); err == nil {
		t.Error("ParseConsoleCertificate accepted garbage DER")
	}
}
