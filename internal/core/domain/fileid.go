package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// FileID is a short deterministic fingerprint of a document set. It is the
// partition key for every persisted chunk and query tied to that set.
type FileID string

const fileIDLength = 16

// DeriveFileID fingerprints a set of source locators. The result does not
// depend on the order of the input: locators are sorted before hashing.
func DeriveFileID(locators []string) (FileID, error) {
	if len(locators) == 0 {
		return "", WrapError(ErrInvalidInput, "derive file id", errors.New("no document locators"))
	}

	sorted := make([]string, len(locators))
	copy(sorted, locators)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "")))
	return FileID(hex.EncodeToString(sum[:])[:fileIDLength]), nil
}

func (id FileID) String() string { return string(id) }
