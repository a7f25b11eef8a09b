// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package identity encodes and decodes the 17-byte peer identities used to
// address clients and workers on the balancer's ROUTER sockets.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// Size is the wire length of an identity frame: one zero tag byte plus a
// 16-byte UUID payload.
const Size = 17

const hexDigits = "0123456789ABCDEF"

// Raw is a 17-byte wire identity. Byte 0 is always 0x00.
type Raw [Size]byte

// New generates a fresh random (v4) identity.
func New() Raw {
	var r Raw
	payload := uuid.New()
	copy(r[1:], payload[:])
	return r
}

// Bytes returns the identity as a frame ready to send on the wire.
func (r Raw) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, r[:])
	return b
}

// FromBytes validates and wraps a 17-byte frame as a Raw identity.
func FromBytes(b []byte) (Raw, error) {
	var r Raw
	if len(b) != Size {
		return r, fmt.Errorf("identity: want %d bytes, got %d", Size, len(b))
	}
	if b[0] != 0x00 {
		return r, fmt.Errorf("identity: first byte must be 0x00, got 0x%02x", b[0])
	}
	copy(r[:], b)
	return r, nil
}

// Encode renders a 17-byte identity frame as its readable form: '@' followed
// by 32 uppercase hex characters.
func Encode(b []byte) (string, error) {
	if len(b) != Size {
		return "", fmt.Errorf("identity: want %d bytes, got %d", Size, len(b))
	}
	if b[0] != 0x00 {
		return "", fmt.Errorf("identity: first byte must be 0x00, got 0x%02x", b[0])
	}
	out := make([]byte, 33)
	out[0] = '@'
	for i := 0; i < 16; i++ {
		out[i*2+1] = hexDigits[b[i+1]>>4]
		out[i*2+2] = hexDigits[b[i+1]&0x0f]
	}
	return string(out), nil
}

// String is the readable form of r.
func (r Raw) String() string {
	s, err := Encode(r[:])
	if err != nil {
		// Raw is always well-formed by construction.
		panic(err)
	}
	return s
}

var hexToBin = buildHexTable()

func buildHexTable() [128]int8 {
	var t [128]int8
	for i := range t {
		t[i] = -1
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = int8(c - '0')
	}
	for c := 'A'; c <= 'F'; c++ {
		t[c] = int8(c-'A') + 10
	}
	return t
}

// Decode inverts Encode: it rejects any input not shaped like '@' plus 32
// uppercase hex characters.
func Decode(readable string) ([]byte, error) {
	if len(readable) != 33 {
		return nil, fmt.Errorf("identity: readable form must be 33 chars, got %d", len(readable))
	}
	if readable[0] != '@' {
		return nil, fmt.Errorf("identity: readable form must start with '@'")
	}
	out := make([]byte, Size)
	for i := 0; i < 16; i++ {
		hi := hexNibble(readable[i*2+1])
		lo := hexNibble(readable[i*2+2])
		if hi < 0 || lo < 0 {
			return nil, fmt.Errorf("identity: invalid hex at position %d", i*2+1)
		}
		out[i+1] = byte(hi<<4) | byte(lo)
	}
	return out, nil
}

func hexNibble(c byte) int8 {
	if int(c) >= len(hexToBin) {
		return -1
	}
	return hexToBin[c]
}
