package object

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/nseba/gitcore/plumbing/hash"
)

// Tag is an annotated tag object: a named pointer to another object plus a
// tagger signature and message.
type Tag struct {
	id         hash.ObjectID
	Target     hash.ObjectID
	TargetKind hash.Kind
	Name       string
	Tagger     Signature
	Message    string
}

func (t *Tag) ID() hash.ObjectID { return t.id }
func (t *Tag) Kind() hash.Kind   { return hash.TagObject }

func (t *Tag) Encode() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Target)
	fmt.Fprintf(&buf, "type %s\n", t.TargetKind)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger.Encode())
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	if len(t.Message) == 0 || t.Message[len(t.Message)-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func NewTag(algo hash.Algorithm, target hash.ObjectID, targetKind hash.Kind, name string, tagger Signature, message string) (*Tag, error) {
	t := &Tag{Target: target, TargetKind: targetKind, Name: name, Tagger: tagger, Message: message}
	payload, err := t.Encode()
	if err != nil {
		return nil, err
	}
	t.id = hash.Of(algo, hash.TagObject, payload)
	return t, nil
}

func DecodeTag(algo hash.Algorithm, payload []byte) (*Tag, error) {
	t := &Tag{}
	r := bufio.NewReader(bytes.NewReader(payload))

	inMessage := false
	var msg bytes.Buffer
	for {
		line, err := r.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			break
		}
		trimmed := bytes.TrimRight(line, "\n")

		if inMessage {
			msg.Write(trimmed)
			msg.WriteByte('\n')
		} else if len(trimmed) == 0 {
			inMessage = true
		} else {
			sp := bytes.IndexByte(trimmed, ' ')
			if sp < 0 {
				return nil, fmt.Errorf("malformed tag header: %q", trimmed)
			}
			key, val := string(trimmed[:sp]), trimmed[sp+1:]
			switch key {
			case "object":
				id, ok := hash.FromHex(string(val))
				if !ok {
					return nil, fmt.Errorf("malformed tag: invalid object id")
				}
				t.Target = id
			case "type":
				k, err := hash.ParseKind(string(val))
				if err != nil {
					return nil, err
				}
				t.TargetKind = k
			case "tag":
				t.Name = string(val)
			case "tagger":
				sig, err := ParseSignature(val)
				if err != nil {
					return nil, err
				}
				t.Tagger = sig
			}
		}

		if err != nil {
			break
		}
	}

	t.Message = msg.String()
	t.id = hash.Of(algo, hash.TagObject, payload)
	return t, nil
}
