package permission

import (
	"encoding/binary"
	"errors"
)

// Flags is a 64-bit capability set. The zero value carries no permissions.
type Flags uint64

// Has reports whether the bit at position bit is set.
func (f Flags) Has(bit int) bool {
	if bit < 0 || bit > 63 {
		return false
	}
	return f&(1<<uint(bit)) != 0
}

// With returns a copy of f with the bit at position bit set.
func (f Flags) With(bit int) Flags {
	if bit < 0 || bit > 63 {
		return f
	}
	return f | 1<<uint(bit)
}

// Without returns a copy of f with the bit at position bit cleared.
func (f Flags) Without(bit int) Flags {
	if bit < 0 || bit > 63 {
		return f
	}
	return f &^ (1 << uint(bit))
}

// Encode serializes the flag set for embedding in access-token claims.
func (f Flags) Encode() []byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], uint64(f))
	return out[:]
}

// Decode deserializes a flag set produced by [Flags.Encode]. A nil or
// empty slice decodes to the zero set; any other length is rejected.
func Decode(data []byte) (Flags, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, errors.New("invalid flags encoding length")
	}
	return Flags(binary.BigEndian.Uint64(data)), nil
}

// FromNames builds a flag set from permission names registered in reg.
// Unregistered names are an error so role definitions fail fast at
// startup instead of silently granting nothing.
func FromNames(reg *Registry, names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		bit, ok := reg.Bit(name)
		if !ok {
			return 0, errors.New("permission not registered: " + name)
		}
		f = f.With(bit)
	}
	return f, nil
}

// Names expands a flag set back into registered permission names.
func Names(reg *Registry, f Flags) []string {
	out := make([]string, 0)
	for bit := 0; bit < 64; bit++ {
		if !f.Has(bit) {
			continue
		}
		if name, ok := reg.Name(bit); ok {
			out = append(out, name)
		}
	}
	return out
}
