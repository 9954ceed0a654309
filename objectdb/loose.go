// Package objectdb implements the object database (§4.3): canonical
// (de)serialization dispatch, loose-object storage over the abstract
// KVStore contract, packfile ingestion, and the bounded object cache.
package objectdb

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/nseba/gitcore/plumbing/hash"
)

// encodeLoose frames a payload as "<kind> <len>\0<payload>" and deflates
// it, the on-disk form of a loose object.
func encodeLoose(k hash.Kind, payload []byte) ([]byte, error) {
	var raw bytes.Buffer
	fmt.Fprintf(&raw, "%s %d\x00", k, len(payload))
	raw.Write(payload)

	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// decodeLoose inflates and parses a loose object's header, returning the
// kind and payload (header stripped).
func decodeLoose(data []byte) (hash.Kind, []byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("objectdb: inflate: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return 0, nil, fmt.Errorf("objectdb: inflate body: %w", err)
	}

	sp := bytes.IndexByte(raw, ' ')
	nul := bytes.IndexByte(raw, 0)
	if sp < 0 || nul < 0 || nul < sp {
		return 0, nil, fmt.Errorf("objectdb: malformed loose object header")
	}
	k, err := hash.ParseKind(string(raw[:sp]))
	if err != nil {
		return 0, nil, err
	}
	return k, raw[nul+1:], nil
}
