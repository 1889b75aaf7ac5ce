package persist

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// PersistASCIIString persists a Windows-1252 string with a one-byte length
// prefix.
func (p *Persister) PersistASCIIString(v *string) {
	if p.mode == ModeWrite {
		if p.err != nil {
			return
		}
		if !utf8.ValidString(*v) {
			p.fail(fmt.Errorf("%w: %q is not valid UTF-8", ErrValueOutOfRange, *v))
			return
		}
		encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(*v))
		if err != nil {
			p.fail(fmt.Errorf("%w: %q is not representable in Windows-1252: %v", ErrValueOutOfRange, *v, err))
			return
		}
		if len(encoded) > math.MaxUint8 {
			p.fail(fmt.Errorf("%w: string of %d bytes exceeds one-byte prefix", ErrValueOutOfRange, len(encoded)))
			return
		}
		p.write([]byte{uint8(len(encoded))})
		p.write(encoded)
		return
	}

	var n uint8
	p.PersistUint8(&n)
	raw := p.read(int(n))
	if raw == nil {
		return
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		p.Invalid("ascii string: %v", err)
		return
	}
	// 0x81, 0x8D, 0x8F, 0x90 and 0x9D are unassigned and decode to U+FFFD.
	if again, err := charmap.Windows1252.NewEncoder().Bytes(decoded); err != nil || !bytes.Equal(again, raw) {
		p.Invalid("ascii string: % x has no Windows-1252 text", raw)
		return
	}
	*v = string(decoded)
}

// PersistUnicodeString persists a UTF-16LE string whose one-byte prefix
// counts code units, not bytes.
func (p *Persister) PersistUnicodeString(v *string) {
	if p.mode == ModeWrite {
		if p.err != nil {
			return
		}
		if !utf8.ValidString(*v) {
			p.fail(fmt.Errorf("%w: %q is not valid UTF-8", ErrValueOutOfRange, *v))
			return
		}
		encoded, err := utf16le.NewEncoder().Bytes([]byte(*v))
		if err != nil {
			p.fail(fmt.Errorf("%w: %v", ErrValueOutOfRange, err))
			return
		}
		units := len(encoded) / 2
		if units > math.MaxUint8 {
			p.fail(fmt.Errorf("%w: string of %d code units exceeds one-byte prefix", ErrValueOutOfRange, units))
			return
		}
		p.write([]byte{uint8(units)})
		p.write(encoded)
		return
	}

	var units uint8
	p.PersistUint8(&units)
	raw := p.read(int(units) * 2)
	if raw == nil {
		return
	}
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		p.Invalid("unicode string: %v", err)
		return
	}
	// Unpaired surrogates decode to U+FFFD and would be written back
	// differently.
	if again, err := utf16le.NewEncoder().Bytes(decoded); err != nil || !bytes.Equal(again, raw) {
		p.Invalid("unicode string: % x is not well-formed UTF-16", raw)
		return
	}
	*v = string(decoded)
}
