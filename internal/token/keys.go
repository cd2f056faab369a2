package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair is the process-wide signing material. It is loaded once at startup
// and never mutated.
type KeyPair struct {
	Method  jwt.SigningMethod
	private crypto.PrivateKey
	public  crypto.PublicKey
}

// LoadKeyPair reads PEM-encoded private and public keys from disk.
func LoadKeyPair(privatePath, publicPath string) (*KeyPair, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ParseKeyPair(privPEM, pubPEM)
}

// ParseKeyPair picks the algorithm from the private key type (RSA -> RS256,
// Ed25519 -> EdDSA, ECDSA -> ES256/384/512) and checks that both halves match.
func ParseKeyPair(privPEM, pubPEM []byte) (*KeyPair, error) {
	kp := &KeyPair{}

	if k, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM); err == nil {
		pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("parse rsa public key: %w", err)
		}
		kp.Method, kp.private, kp.public = jwt.SigningMethodRS256, k, pub
	} else if k, err := jwt.ParseEdPrivateKeyFromPEM(privPEM); err == nil {
		pub, err := jwt.ParseEdPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("parse ed25519 public key: %w", err)
		}
		kp.Method, kp.private, kp.public = jwt.SigningMethodEdDSA, k, pub
	} else if k, err := jwt.ParseECPrivateKeyFromPEM(privPEM); err == nil {
		pub, err := jwt.ParseECPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("parse ecdsa public key: %w", err)
		}
		method, err := ecMethod(k)
		if err != nil {
			return nil, err
		}
		kp.Method, kp.private, kp.public = method, k, pub
	} else {
		return nil, errors.New("unsupported or malformed private key")
	}

	signer, ok := kp.private.(crypto.Signer)
	if !ok {
		return nil, errors.New("private key cannot sign")
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(kp.public) {
		return nil, errors.New("public key does not match private key")
	}
	return kp, nil
}

func ecMethod(k *ecdsa.PrivateKey) (jwt.SigningMethod, error) {
	switch k.Curve {
	case elliptic.P256():
		return jwt.SigningMethodES256, nil
	case elliptic.P384():
		return jwt.SigningMethodES384, nil
	case elliptic.P521():
		return jwt.SigningMethodES512, nil
	}
	return nil, fmt.Errorf("unsupported ecdsa curve %s", k.Curve.Params().Name)
}
