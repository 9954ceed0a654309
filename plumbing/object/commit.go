package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/nseba/gitcore/plumbing/hash"
)

// Commit is an immutable snapshot of history: one root tree, zero or more
// parents, author/committer signatures, and a message that always ends in
// a newline on disk.
type Commit struct {
	id        hash.ObjectID
	Tree      hash.ObjectID
	Parents   []hash.ObjectID
	Author    Signature
	Committer Signature
	Message   string
}

func (c *Commit) ID() hash.ObjectID { return c.id }
func (c *Commit) Kind() hash.Kind   { return hash.CommitObject }

// Encode renders the canonical commit payload: "tree", "parent"*,
// "author", "committer", blank line, message.
func (c *Commit) Encode() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.Encode())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.Encode())
	buf.WriteByte('\n')
	msg := c.Message
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	buf.WriteString(msg)
	return buf.Bytes(), nil
}

// NewCommit hashes and finalizes a Commit. The id is computed over the
// encoding, which appends a trailing newline to the message if missing; the
// Message field itself keeps the text as given.
func NewCommit(algo hash.Algorithm, tree hash.ObjectID, parents []hash.ObjectID, author, committer Signature, message string) (*Commit, error) {
	c := &Commit{Tree: tree, Parents: parents, Author: author, Committer: committer, Message: message}
	payload, err := c.Encode()
	if err != nil {
		return nil, err
	}
	c.id = hash.Of(algo, hash.CommitObject, payload)
	return c, nil
}

// DecodeCommit parses a commit payload.
func DecodeCommit(algo hash.Algorithm, payload []byte) (*Commit, error) {
	c := &Commit{}
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
				return nil, fmt.Errorf("malformed commit header: %q", trimmed)
			}
			key, val := string(trimmed[:sp]), trimmed[sp+1:]
			switch key {
			case "tree":
				id, ok := hash.FromHex(string(val))
				if !ok {
					return nil, fmt.Errorf("malformed commit: invalid tree id")
				}
				c.Tree = id
			case "parent":
				id, ok := hash.FromHex(string(val))
				if !ok {
					return nil, fmt.Errorf("malformed commit: invalid parent id")
				}
				c.Parents = append(c.Parents, id)
			case "author":
				sig, err := ParseSignature(val)
				if err != nil {
					return nil, err
				}
				c.Author = sig
			case "committer":
				sig, err := ParseSignature(val)
				if err != nil {
					return nil, err
				}
				c.Committer = sig
			}
		}

		if err != nil {
			break
		}
	}

	c.Message = msg.String()
	c.id = hash.Of(algo, hash.CommitObject, payload)
	return c, nil
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool { return len(c.Parents) == 0 }
