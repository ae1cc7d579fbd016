package scene

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
)

// WriteError reports a failure to write the scene container. The export is
// not retried; the manifest has to be rebuilt by the caller.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing scene %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer serializes a document to a container file.
type Writer interface {
	Write(doc *gltf.Document, path string) error
}

// GLBWriter writes binary glTF. The file is written next to its destination
// and renamed into place, so a failed write never leaves a partial scene.
type GLBWriter struct{}

// Write encodes doc as GLB at path.
func (GLBWriter) Write(doc *gltf.Document, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	enc := gltf.NewEncoder(tmp)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
