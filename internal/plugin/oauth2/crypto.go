package oauth2

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Parameters for the file tier key derivation. They are fixed so every
// invocation derives the same key and can read earlier records.
const (
	encryptionLabel = "httpcraft-oauth2-token-store"
	encryptionSalt  = "httpcraft-oauth2-salt-v1"
	scryptN         = 32768
	scryptR         = 8
	scryptP         = 1
	derivedKeyLen   = 32
)

func deriveKey() ([]byte, error) {
	return scrypt.Key([]byte(encryptionLabel), []byte(encryptionSalt), scryptN, scryptR, scryptP, derivedKeyLen)
}

// encryptRecord seals data with AES-256-CBC and a fresh IV, producing
// the on-disk form hex(iv):hex(ciphertext).
func encryptRecord(key, data []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func decryptRecord(key []byte, record string) ([]byte, error) {
	ivHex, dataHex, ok := strings.Cut(record, ":")
	if !ok {
		return nil, errors.New("malformed token record")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, errors.New("malformed token record")
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return nil, errors.New("malformed token record")
	}
	if len(iv) != aes.BlockSize || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("malformed token record")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padding")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
