package packfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/nseba/gitcore/plumbing/hash"
)

// BaseResolver looks up an object that a thin pack's ref-delta entry
// references but that is not itself present in the pack (§4.3 "thin
// pack"). Returns (nil, false) when unknown.
type BaseResolver func(id hash.ObjectID) ([]byte, bool)

// Parsed is the fully resolved result of decoding a pack. Objects lists the
// non-delta entries in pack order followed by the resolved deltas in the
// order they were resolved; ByID indexes the same objects by identifier.
type Parsed struct {
	Objects []ParsedObject
	ByID    map[string]*ParsedObject
}

type ParsedObject struct {
	Kind    int8 // always one of the four database kinds after resolution
	Payload []byte
	ID      hash.ObjectID
}

type pendingDelta struct {
	index     int // index into raw entries, used to report order
	isOfs     bool
	baseOff   int64 // file offset of the base, for ofs-delta
	baseID    hash.ObjectID
	deltaData []byte
	kind      int8 // typeOfsDelta or typeRefDelta
}

// Parse decodes a complete packfile, resolving every delta in dependency
// order (base-first): non-delta entries materialize directly; ofs-deltas
// resolve against an earlier entry at a known file offset; ref-deltas
// resolve against any already-known object, in the pack or supplied by
// resolveBase for thin packs.
func Parse(algo hash.Algorithm, r io.Reader, resolveBase BaseResolver) (*Parsed, error) {
	br := bufio.NewReader(r)

	var header [12]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidPackfile, err)
	}
	if err := checkMagic(header[:4]); err != nil {
		return nil, err
	}
	version := binary.BigEndian.Uint32(header[4:8])
	if version != 2 && version != 3 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPackfile, version)
	}
	count := binary.BigEndian.Uint32(header[8:12])

	type rawEntry struct {
		offset  int64
		kind    int8
		payload []byte // non-nil only for non-delta entries
		delta   *pendingDelta
	}

	entries := make([]rawEntry, 0, count)
	offsets := map[int64]int{} // file offset -> index into entries
	byID := map[string]*ParsedObject{}
	order := []*ParsedObject{}

	var consumed int64 = 12
	cr := &countingReader{r: br, n: &consumed}
	cbr := bufio.NewReader(cr)

	for i := uint32(0); i < count; i++ {
		entryOffset := consumed - int64(cbr.Buffered())

		kind, size, err := decodeTypeAndSize(cbr)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d header: %v", ErrInvalidPackfile, i, err)
		}

		var baseOff int64
		var baseID hash.ObjectID
		switch kind {
		case typeOfsDelta:
			off, err := decodeOffset(cbr)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d ofs-delta offset: %v", ErrInvalidPackfile, i, err)
			}
			baseOff = entryOffset - off
		case typeRefDelta:
			idBytes := make([]byte, algo.Size())
			if _, err := io.ReadFull(cbr, idBytes); err != nil {
				return nil, fmt.Errorf("%w: entry %d ref-delta base id: %v", ErrInvalidPackfile, i, err)
			}
			baseID, _ = hash.FromBytes(idBytes)
		}

		zr, err := zlib.NewReader(cbr)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d inflate: %v", ErrInvalidPackfile, i, err)
		}
		payload := make([]byte, 0, size)
		buf := bytes.NewBuffer(payload)
		if _, err := io.CopyN(buf, zr, size); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: entry %d inflate body: %v", ErrInvalidPackfile, i, err)
		}
		zr.Close()
		payload = buf.Bytes()

		idx := len(entries)
		offsets[entryOffset] = idx

		switch kind {
		case typeOfsDelta, typeRefDelta:
			entries = append(entries, rawEntry{offset: entryOffset, kind: kind, delta: &pendingDelta{
				index: idx, isOfs: kind == typeOfsDelta, baseOff: baseOff, baseID: baseID, deltaData: payload, kind: kind,
			}})
		default:
			entries = append(entries, rawEntry{offset: entryOffset, kind: kind, payload: payload})
		}
	}

	// First pass: materialize every non-delta entry and hash it.
	materialized := make([][]byte, len(entries))
	kinds := make([]int8, len(entries))
	for i, e := range entries {
		kinds[i] = e.kind
		if e.payload != nil {
			materialized[i] = e.payload
			k, err := baseKind(e.kind)
			if err != nil {
				return nil, err
			}
			id := hash.Of(algo, k, e.payload)
			po := &ParsedObject{Kind: e.kind, Payload: e.payload, ID: id}
			byID[string(id)] = po
			order = append(order, po)
		}
	}

	// Resolve deltas, possibly requiring multiple passes when a delta's
	// base is itself an unresolved delta earlier or later in pack order.
	pending := map[int]bool{}
	for i, e := range entries {
		if e.delta != nil {
			pending[i] = true
		}
	}

	for len(pending) > 0 {
		progressed := false
		for i := range pending {
			d := entries[i].delta
			var base []byte
			var ok bool
			if d.isOfs {
				bi, found := offsets[d.baseOff]
				if !found {
					return nil, fmt.Errorf("%w: ofs-delta at offset %d", ErrMissingBase, entries[i].offset)
				}
				base, ok = materialized[bi], materialized[bi] != nil
			} else {
				if po, found := byID[string(d.baseID)]; found {
					base, ok = po.Payload, true
				} else if resolveBase != nil {
					base, ok = resolveBase(d.baseID)
				}
			}
			if !ok {
				continue
			}

			target, err := ApplyDelta(base, d.deltaData)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			materialized[i] = target

			// the resolved kind is inherited from the base chain; since we
			// resolve base-first, the base's entry (if in-pack) already
			// carries a concrete kind.
			resolvedKind := kinds[i]
			if d.isOfs {
				if bi, found := offsets[d.baseOff]; found {
					resolvedKind = kinds[bi]
				}
			} else if po, found := byID[string(d.baseID)]; found {
				resolvedKind = po.Kind
			}
			kinds[i] = resolvedKind

			k, err := baseKind(resolvedKind)
			if err != nil {
				return nil, err
			}
			id := hash.Of(algo, k, target)
			po := &ParsedObject{Kind: resolvedKind, Payload: target, ID: id}
			byID[string(id)] = po
			order = append(order, po)

			delete(pending, i)
			progressed = true
		}
		if !progressed {
			return nil, ErrMissingBase
		}
	}

	return &Parsed{Objects: derefAll(order), ByID: byID}, nil
}

func derefAll(in []*ParsedObject) []ParsedObject {
	out := make([]ParsedObject, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}

func baseKind(k int8) (hash.Kind, error) {
	switch k {
	case typeCommit:
		return hash.CommitObject, nil
	case typeTree:
		return hash.TreeObject, nil
	case typeBlob:
		return hash.BlobObject, nil
	case typeTag:
		return hash.TagObject, nil
	default:
		return 0, fmt.Errorf("%w: cannot resolve kind for type %s", ErrInvalidPackfile, kindName(k))
	}
}

// countingReader tracks total bytes read so ofs-delta offsets (which are
// relative to the start of the pack) can be computed without seeking.
type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}
