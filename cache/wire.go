package cache

import (
	"fmt"
	"time"

	"github.com/chazu/jackc/compiler"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal entries encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Entry is the cached result of compiling one class.
type Entry struct {
	Key          string                 `cbor:"1,keyasint"`
	Class        string                 `cbor:"2,keyasint"`
	Instructions []compiler.Instruction `cbor:"3,keyasint"`
	BuildID      string                 `cbor:"4,keyasint,omitempty"`
	Created      time.Time              `cbor:"5,keyasint"`
}

// MarshalEntry serializes an Entry to CBOR bytes.
func MarshalEntry(e *Entry) ([]byte, error) {
	return cborEncMode.Marshal(e)
}

// UnmarshalEntry deserializes an Entry from CBOR bytes.
func UnmarshalEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("cache: unmarshal entry: %w", err)
	}
	return &e, nil
}
