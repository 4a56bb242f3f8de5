package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/meshweave/fabric-go/model/fabric"
)

const (
	// codes for fabric table entries
	codeFabric       = 1 // fabric index -> fabric entry
	codeFabricLookup = 2 // (root public key hash, fabric id) -> fabric index
	codeFabricBound  = 3 // highest fabric index assigned so far

	// codes for group-key storage
	codeGroupKey = 10 // (fabric index, key hash) -> key material
)

func makePrefix(code byte, keys ...interface{}) []byte {
	prefix := make([]byte, 1)
	prefix[0] = code
	for _, key := range keys {
		prefix = append(prefix, b(key)...)
	}
	return prefix
}

func b(v interface{}) []byte {
	switch i := v.(type) {
	case uint8:
		return []byte{i}
	case uint32:
		val := make([]byte, 4)
		binary.BigEndian.PutUint32(val, i)
		return val
	case uint64:
		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, i)
		return val
	case fabric.FabricIndex:
		return []byte{uint8(i)}
	case fabric.FabricID:
		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, uint64(i))
		return val
	case []byte:
		return i
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}
