// Package filemode defines the closed set of modes a tree entry may carry.
package filemode

import "fmt"

// FileMode is one of the modes git tree entries are restricted to. Unlike a
// POSIX mode, this is a closed enumeration: there is no "rwx" freedom, only
// the five kinds trees distinguish between.
type FileMode uint32

const (
	Empty       FileMode = 0
	Dir         FileMode = 0040000
	Regular     FileMode = 0100644
	Deprecated  FileMode = 0100664
	Executable  FileMode = 0100755
	Symlink     FileMode = 0120000
	Submodule   FileMode = 0160000
)

// New parses the octal mode string recorded in a tree entry or pack header.
func New(s string) (FileMode, error) {
	var n uint32
	if _, err := fmt.Sscanf(s, "%o", &n); err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	m := FileMode(n)
	if !m.valid() {
		return 0, fmt.Errorf("invalid file mode %q", s)
	}
	return m, nil
}

func (m FileMode) valid() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule, Empty:
		return true
	default:
		return false
	}
}

// String renders the canonical octal form used in tree object serialization.
func (m FileMode) String() string {
	return fmt.Sprintf("%o", uint32(m))
}

// IsRegular reports whether the mode is a plain blob (file or executable).
func (m FileMode) IsRegular() bool {
	return m == Regular || m == Executable || m == Deprecated
}

// IsMalformed reports whether the mode is outside the closed set; loading
// such an entry is a hard error per the tree-entry invariant.
func (m FileMode) IsMalformed() bool {
	return !m.valid()
}
