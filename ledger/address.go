package ledger

import (
	"encoding/base32"
	"errors"
	"fmt"
)

// ErrBadAddress is returned when an address string does not decode to 32
// bytes.
var ErrBadAddress = errors.New("bad address")

var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Address identifies one account: 32 opaque bytes, rendered base32.
// No key derivation or checksumming happens here.
type Address [32]byte

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return a, fmt.Errorf("%w: %d bytes", ErrBadAddress, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes the base32 rendering produced by String.
func ParseAddress(s string) (Address, error) {
	b, err := addressEncoding.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	return AddressFromBytes(b)
}

func (a Address) String() string {
	return addressEncoding.EncodeToString(a[:])
}
