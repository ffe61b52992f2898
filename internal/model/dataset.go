package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// Dataset is one ingested snapshot of the study inputs: the region
// sequence with geometry, the region-aligned attribute frame and the
// per-region store counts. Analysis runs reference a dataset by ID so
// results stay reproducible after the upstream sources move.
type Dataset struct {
	ID        string   `json:"id"`
	Regions   []Region `json:"regions"`
	Frame     *Frame   `json:"frame"`
	Counts    []int    `json:"counts"` // store points per region, region order
	Unmatched int      `json:"unmatched"`

	// Checksum fingerprints the frame so a run records exactly which
	// numbers it saw.
	Checksum string `json:"checksum"`

	CreatedAt time.Time `json:"created_at"`
}

// FrameChecksum returns a SHA-256 fingerprint of a frame plus the store
// counts, for recording which numbers a run saw.
func FrameChecksum(f *Frame, counts []int) string {
	data, err := json.Marshal(struct {
		Frame  *Frame `json:"frame"`
		Counts []int  `json:"counts"`
	}{f, counts})
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}
