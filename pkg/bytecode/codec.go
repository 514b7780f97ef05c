package bytecode

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
)

// Magic prefixes every compiled program file; the last byte is the format version.
var Magic = []byte{'S', 'W', 'B', 'C', 1}

// Extension of compiled program files.
const Extension = ".swbc"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// HashSource returns the hash recorded in Program.SourceHash for src.
func HashSource(src []rune) uint64 {
	return xxhash.Sum64String(string(src))
}

// Marshal serializes p behind the Magic header.
func Marshal(p *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}
	return append(append([]byte{}, Magic...), body...), nil
}

// Unmarshal reads a program written by Marshal and validates it.
func Unmarshal(data []byte) (*Program, error) {
	if !bytes.HasPrefix(data, Magic) {
		return nil, errors.New("bytecode: not a compiled swindle program")
	}
	var p Program
	if err := cbor.Unmarshal(data[len(Magic):], &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: invalid program: %w", err)
	}
	return &p, nil
}

// Save writes p to path.
func Save(path string, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a program from path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Cached returns the program stored at path if it was compiled from src. A missing file is a
// miss, not an error.
func Cached(path string, src []rune) (*Program, bool, error) {
	p, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if p.SourceHash != HashSource(src) {
		return nil, false, nil
	}
	return p, true, nil
}
