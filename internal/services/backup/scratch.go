package backup

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Scratch is the local directory dumps and archives are staged in before upload.
type Scratch struct {
	Dir string
}

// NewScratch returns a Scratch rooted at dir.
func NewScratch(dir string) Scratch {
	return Scratch{Dir: dir}
}

// Prepare creates the directory.
func (s Scratch) Prepare() error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// Remove deletes the directory and everything left in it.
func (s Scratch) Remove() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

// NewPath returns a fresh file path named <unix-millis>-<uuid hex>.
func (s Scratch) NewPath() string {
	id := uuid.New()
	return filepath.Join(s.Dir, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(id[:])))
}
