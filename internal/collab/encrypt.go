package collab

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Poly1305Encrypter is the default Encrypter: an authenticated
// stream cipher, prefixing ciphertext with a random nonce.
type ChaCha20Poly1305Encrypter struct{}

func (ChaCha20Poly1305Encrypter) Overhead() int {
	return chacha20poly1305.NonceSize + chacha20poly1305.Overhead
}

func (e ChaCha20Poly1305Encrypter) Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("collab: new cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("collab: generate nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, plaintext, nil)
	return out, nil
}

func (e ChaCha20Poly1305Encrypter) Decrypt(ciphertext, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("collab: new cipher: %w", err)
	}
	if len(ciphertext) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("collab: ciphertext shorter than nonce")
	}
	nonce, body := ciphertext[:chacha20poly1305.NonceSize], ciphertext[chacha20poly1305.NonceSize:]
	plain, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("collab: decrypt: %w", err)
	}
	return plain, nil
}

// IdentityEncrypter performs no encryption; used when no key is configured.
type IdentityEncrypter struct{}

func (IdentityEncrypter) Overhead() int { return 0 }

func (IdentityEncrypter) Encrypt(plaintext, _ []byte) ([]byte, error) {
	return plaintext, nil
}

func (IdentityEncrypter) Decrypt(ciphertext, _ []byte) ([]byte, error) {
	return ciphertext, nil
}
