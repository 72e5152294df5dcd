package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
)

// Saver persists exported log text under a suggested filename.
type Saver interface {
	Save(content, filename string) error
}

// DirSaver writes downloads into Dir, creating it when needed.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(content, filename string) error {
	dir := strings.TrimSpace(d.Dir)
	if dir == "" {
		return fmt.Errorf("export dir is empty")
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid export filename %q", filename)
	}
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), defaultFileMode); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Path returns where a download named filename ends up.
func (d DirSaver) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}

// ClipboardSaver copies the export onto the system clipboard. The filename is
// ignored.
type ClipboardSaver struct{}

func (ClipboardSaver) Save(content, _ string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unsupported on this platform")
	}
	if err := clipboard.WriteAll(content); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
