package nvs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is a Device backed by a small image file. Bytes past the end of the
// file read back as Erased, like a fresh EEPROM.
type File struct {
	f *os.File
}

// OpenFile opens or creates the image at path, creating missing parent
// directories.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create nvs directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open nvs image: %w", err)
	}
	return &File{f: f}, nil
}

// Load implements Device.
func (d *File) Load(off int) (byte, error) {
	var buf [1]byte
	_, err := d.f.ReadAt(buf[:], int64(off))
	if errors.Is(err, io.EOF) {
		return Erased, nil
	}
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Store implements Device. Each write is synced so it survives power loss.
func (d *File) Store(off int, b byte) error {
	if size, err := d.size(); err == nil && int64(off) > size {
		// Fill the gap with erased cells.
		pad := make([]byte, int64(off)-size)
		for i := range pad {
			pad[i] = Erased
		}
		if _, err := d.f.WriteAt(pad, size); err != nil {
			return err
		}
	}
	if _, err := d.f.WriteAt([]byte{b}, int64(off)); err != nil {
		return err
	}
	return d.f.Sync()
}

func (d *File) size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Close implements Device.
func (d *File) Close() error {
	return d.f.Close()
}
