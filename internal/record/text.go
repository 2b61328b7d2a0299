// Package record holds the encodings used to persist set values.
//
// The text encoding is the on-disk format of the file backend:
//
//	<count>\n
//	<len(entry1)>\n<entry1>\n
//	<len(entry2)>\n<entry2>\n
//	...
//
// Entries are read back by their declared byte length, so an entry may carry
// newlines of its own. The binary encoding is used where a record is stored
// as an opaque value (the bbolt backend).
package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"celebi/pkg/store"
)

// ErrCorrupt is returned when a persisted set record cannot be parsed.
var ErrCorrupt = errors.New("corrupt set record")

// AppendTextSet appends the text encoding of s to b. Members are written in
// sorted order so equal sets produce identical records.
func AppendTextSet(b []byte, s store.StringSet) []byte {
	b = strconv.AppendInt(b, int64(s.Len()), 10)
	b = append(b, '\n')
	for _, v := range s.Sorted() {
		b = AppendTextEntry(b, v)
	}
	return b
}

// AppendTextEntry appends one length-prefixed entry.
func AppendTextEntry(b []byte, v string) []byte {
	b = strconv.AppendInt(b, int64(len(v)), 10)
	b = append(b, '\n')
	b = append(b, v...)
	return append(b, '\n')
}

// CountLine formats the header line for a record holding n entries.
func CountLine(n int) string {
	return strconv.Itoa(n) + "\n"
}

// DecodeTextSet parses a text record. It returns the members together with
// the entry count declared in the header, which can exceed the number of
// distinct members when the record was written with duplicates.
func DecodeTextSet(r io.Reader) (store.StringSet, int, error) {
	br := bufio.NewReader(r)

	count, err := readNumber(br)
	if err == io.EOF {
		// An empty file is an empty set.
		return store.NewStringSet(), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}

	set := make(store.StringSet, min(count, 1024))
	for i := range count {
		n, err := readNumber(br)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: entry %d length: %v", ErrCorrupt, i, err)
		}
		// Copy instead of allocating n bytes up front: n is untrusted.
		var entry strings.Builder
		if _, err := io.CopyN(&entry, br, int64(n)); err != nil {
			return nil, 0, fmt.Errorf("%w: entry %d: %v", ErrCorrupt, i, err)
		}
		if c, err := br.ReadByte(); err == nil && c != '\n' {
			return nil, 0, fmt.Errorf("%w: entry %d not newline terminated", ErrCorrupt, i)
		}
		set.Add(entry.String())
	}
	return set, count, nil
}

func readNumber(br *bufio.Reader) (int, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative number %d", n)
	}
	return n, nil
}
