package nano

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	addressAlphabet = "13456789abcdefghijkmnopqrstuwxyz"
	keyChars        = 52
	checksumChars   = 8
	checksumSize    = 5
)

var addressPrefixes = []string{"nano_", "xrb_"}

// ValidateAddress checks prefix, alphabet, length and the blake2b checksum.
func ValidateAddress(address string) error {
	_, err := PublicKey(address)
	return err
}

// PublicKey decodes the 32-byte public key of an account address.
func PublicKey(address string) ([]byte, error) {
	body := ""
	for _, p := range addressPrefixes {
		if strings.HasPrefix(address, p) {
			body = strings.TrimPrefix(address, p)
			break
		}
	}
	if body == "" {
		return nil, fmt.Errorf("%w: %q has no nano_ or xrb_ prefix", ErrInvalidAddress, address)
	}
	if len(body) != keyChars+checksumChars {
		return nil, fmt.Errorf("%w: %q has the wrong length", ErrInvalidAddress, address)
	}

	keyNum, err := decodeBase32(body[:keyChars])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if keyNum.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q has non-zero padding bits", ErrInvalidAddress, address)
	}
	checkNum, err := decodeBase32(body[keyChars:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	pub := keyNum.FillBytes(make([]byte, 32))
	want, err := checksum(pub)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(checkNum.FillBytes(make([]byte, checksumSize)), want) {
		return nil, fmt.Errorf("%w: %q fails checksum", ErrInvalidAddress, address)
	}
	return pub, nil
}

// EncodeAddress renders a 32-byte public key as a nano_ address.
func EncodeAddress(pub []byte) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("%w: public key must be 32 bytes, got %d", ErrInvalidAddress, len(pub))
	}
	sum, err := checksum(pub)
	if err != nil {
		return "", err
	}
	return "nano_" + encodeBase32(new(big.Int).SetBytes(pub), keyChars) +
		encodeBase32(new(big.Int).SetBytes(sum), checksumChars), nil
}

// checksum is the 5-byte blake2b digest of the key, byte-reversed.
func checksum(pub []byte) ([]byte, error) {
	h, err := blake2b.New(checksumSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blake2b hash: %w", err)
	}
	h.Write(pub)
	sum := h.Sum(nil)
	for i, j := 0, len(sum)-1; i < j; i, j = i+1, j-1 {
		sum[i], sum[j] = sum[j], sum[i]
	}
	return sum, nil
}

func decodeBase32(s string) (*big.Int, error) {
	n := new(big.Int)
	for _, r := range s {
		idx := strings.IndexRune(addressAlphabet, r)
		if idx < 0 {
			return nil, fmt.Errorf("character %q is not in the address alphabet", r)
		}
		n.Lsh(n, 5)
		n.Or(n, big.NewInt(int64(idx)))
	}
	return n, nil
}

func encodeBase32(n *big.Int, chars int) string {
	out := make([]byte, chars)
	v := new(big.Int).Set(n)
	mask := big.NewInt(31)
	digit := new(big.Int)
	for i := chars - 1; i >= 0; i-- {
		digit.And(v, mask)
		out[i] = addressAlphabet[digit.Int64()]
		v.Rsh(v, 5)
	}
	return string(out)
}
