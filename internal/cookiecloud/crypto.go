package cookiecloud

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // CookieCloud payloads use the CryptoJS/OpenSSL MD5 key schedule.
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const opensslSaltHeader = "Salted__"

// passphrase derives the shared secret the CookieCloud browser extension
// encrypts with: the first 16 hex chars of md5(uuid + "-" + password).
func passphrase(uuid, password string) string {
	sum := md5.Sum([]byte(uuid + "-" + password))
	return hex.EncodeToString(sum[:])[:16]
}

// evpKDF is OpenSSL EVP_BytesToKey with MD5: repeated digests of
// (prev || passphrase || salt) concatenated until key and IV are filled.
// CryptoJS AES defaults to a 32-byte key and 16-byte IV.
func evpKDF(pass, salt []byte) (key, iv []byte) {
	var derived []byte
	var prev []byte
	for len(derived) < 48 {
		h := md5.New() //nolint:gosec
		h.Write(prev)
		h.Write(pass)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:32], derived[32:48]
}

// decryptPayload decodes and decrypts one base64 CookieCloud blob
// (OpenSSL salted AES-256-CBC) and strips the PKCS#7 padding.
func decryptPayload(pass string, encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(raw) < len(opensslSaltHeader)+8 || !bytes.HasPrefix(raw, []byte(opensslSaltHeader)) {
		return nil, errors.New("payload missing openssl salt header")
	}
	salt := raw[len(opensslSaltHeader) : len(opensslSaltHeader)+8]
	ciphertext := raw[len(opensslSaltHeader)+8:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext not full blocks")
	}

	key, iv := evpKDF([]byte(pass), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return pkcs7Unpad(plain)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n <= 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding length: %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding byte")
		}
	}
	return b[:len(b)-n], nil
}
