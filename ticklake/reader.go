package ticklake

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Reader streams decoded records out of a mirrored local dataset tree,
// the directory a Download call populated. Files are decompressed by
// extension and decoded with the dataset's codec.
type Reader struct {
	dir   string
	codec Codec
}

// NewReader opens a mirrored dataset directory for reading.
func NewReader(dir string, codec Codec) (*Reader, error) {
	if codec == nil {
		return nil, fmt.Errorf("ticklake: codec is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &DestinationError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DestinationError{Path: dir, Err: fmt.Errorf("not a directory")}
	}
	return &Reader{dir: dir, codec: codec}, nil
}

// Files lists the mirrored files relative to the reader's root, sorted
// for a stable traversal order.
func (r *Reader) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ticklake: walk %s: %w", r.dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile decodes the records of one mirrored file, given relative to
// the reader's root.
func (r *Reader) ReadFile(rel string) ([]Record, error) {
	p := filepath.Join(r.dir, filepath.FromSlash(rel))
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("ticklake: open %s: %w", rel, err)
	}
	defer func() { _ = f.Close() }()

	rc, err := DecompressorForPath(rel).Decompress(f)
	if err != nil {
		return nil, fmt.Errorf("ticklake: decompress %s: %w", rel, err)
	}
	defer func() { _ = rc.Close() }()

	records, err := r.codec.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("ticklake: decode %s: %w", rel, err)
	}
	return records, nil
}

// ReadAll decodes every mirrored file in traversal order and
// concatenates the records.
func (r *Reader) ReadAll() ([]Record, error) {
	files, err := r.Files()
	if err != nil {
		return nil, err
	}
	var all []Record
	for _, rel := range files {
		records, err := r.ReadFile(rel)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}
