package record

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"celebi/pkg/store"
)

// membersField is the field number of the repeated string holding set
// members. The layout matches a protobuf message `{ repeated string members = 1; }`.
const membersField protowire.Number = 1

// EncodeBinarySet returns the protobuf wire encoding of s.
func EncodeBinarySet(s store.StringSet) []byte {
	var b []byte
	for _, v := range s.Sorted() {
		b = protowire.AppendTag(b, membersField, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// DecodeBinarySet parses a record produced by EncodeBinarySet. Unknown fields
// are skipped.
func DecodeBinarySet(b []byte) (store.StringSet, error) {
	set := store.NewStringSet()
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		if num != membersField || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		set.Add(v)
		b = b[n:]
	}
	return set, nil
}
