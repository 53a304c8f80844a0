package nano

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const (
	genesisAddress = "nano_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3"
	genesisKey     = "E89208DD038FBB269987689621D52292AE9C35941A7484756ECCED92A65093BA"
)

func TestPublicKey(t *testing.T) {
	for _, address := range []string{genesisAddress, "xrb_" + strings.TrimPrefix(genesisAddress, "nano_")} {
		pub, err := PublicKey(address)
		if err != nil {
			t.Fatalf("PublicKey(%s) unexpected error = %v", address, err)
		}
		if got := strings.ToUpper(hex.EncodeToString(pub)); got != genesisKey {
			t.Errorf("PublicKey(%s) = %s, want %s", address, got, genesisKey)
		}
	}
}

func TestEncodeAddress(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"genesis", genesisKey, genesisAddress},
		{"zero key", strings.Repeat("00", 32), "nano_1111111111111111111111111111111111111111111111111111hifc8npp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, _ := hex.DecodeString(tt.key)
			got, err := EncodeAddress(pub)
			if err != nil {
				t.Fatalf("EncodeAddress() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeAddress() = %s, want %s", got, tt.want)
			}
			if err := ValidateAddress(got); err != nil {
				t.Errorf("ValidateAddress(%s) unexpected error = %v", got, err)
			}
		})
	}
}

func TestValidateAddressRejects(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"no prefix", strings.TrimPrefix(genesisAddress, "nano_")},
		{"wrong prefix", "ban_" + strings.TrimPrefix(genesisAddress, "nano_")},
		{"too short", genesisAddress[:len(genesisAddress)-1]},
		{"bad checksum", genesisAddress[:len(genesisAddress)-1] + "4"},
		{"bad alphabet", strings.Replace(genesisAddress, "3t6k", "3t6l", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAddress(tt.address); !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("ValidateAddress(%q) error = %v, want ErrInvalidAddress", tt.address, err)
			}
		})
	}
}

func TestEncodeAddressRejectsShortKey(t *testing.T) {
	if _, err := EncodeAddress(make([]byte, 31)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("EncodeAddress() error = %v, want ErrInvalidAddress", err)
	}
}
