package storage

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/ksuid"
	"github.com/zeebo/blake3"
)

// Revision is the metadata of one stored map blob.
type Revision struct {
	ID          string `cbor:"1,keyasint" json:"id"`
	Codename    string `cbor:"2,keyasint" json:"codename"`
	DisplayName string `cbor:"3,keyasint" json:"display_name"`
	Author      string `cbor:"4,keyasint" json:"author"`
	Fingerprint string `cbor:"5,keyasint" json:"fingerprint"`
	Size        int64  `cbor:"6,keyasint" json:"size"`
	Territories int    `cbor:"7,keyasint" json:"territories"`
	Borders     int    `cbor:"8,keyasint" json:"borders"`

	// CreatedAt is derived from the ksuid and is not stored.
	CreatedAt time.Time `cbor:"-" json:"created_at"`
	// Deduplicated is set by Put when the blob matched the latest revision.
	Deduplicated bool `cbor:"-" json:"deduplicated,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshalRevision(rev *Revision) ([]byte, error) {
	return encMode.Marshal(rev)
}

func unmarshalRevision(data []byte) (*Revision, error) {
	var rev Revision
	if err := decMode.Unmarshal(data, &rev); err != nil {
		return nil, fmt.Errorf("%w: revision metadata: %v", ErrCorruptBlob, err)
	}
	id, err := ksuid.Parse(rev.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: revision id %q: %v", ErrCorruptBlob, rev.ID, err)
	}
	rev.CreatedAt = id.Time().UTC()
	return &rev, nil
}

// Fingerprint returns the hex BLAKE3 digest of an encoded blob.
func Fingerprint(blob []byte) string {
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// Key layout:
//
//	blob/<id>                  raw .rkm bytes
//	rev/<hex codename>/<id>    CBOR Revision
//	id/<id>                    codename
//
// Codenames are hex encoded so that any codename is a safe key segment.
// ksuid strings sort by creation time, so a codename prefix scan yields
// revisions oldest first.
const (
	blobPrefix = "blob/"
	revPrefix  = "rev/"
	idPrefix   = "id/"
)

func blobKey(id string) []byte {
	return []byte(blobPrefix + id)
}

func idKey(id string) []byte {
	return []byte(idPrefix + id)
}

func revKey(codename, id string) []byte {
	return []byte(revPrefix + hex.EncodeToString([]byte(codename)) + "/" + id)
}

func revBounds(codename string) (lower, upper []byte) {
	p := revPrefix + hex.EncodeToString([]byte(codename)) + "/"
	return []byte(p), prefixEnd([]byte(p))
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
