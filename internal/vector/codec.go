package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/yomu/internal/models"
)

// File format, little endian: magic "YVX1", dimension (4), document ID length (4),
// document ID, entry count (4), then per entry: chunk index (4), text length (4),
// text bytes, vector (dimension*4 bytes).
var fileMagic = [4]byte{'Y', 'V', 'X', '1'}

// saveFile writes ix to path atomically via a temporary file and rename.
func saveFile(path string, ix *Index) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := encode(w, ix); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// loadFile reads an index from path. A missing file yields ErrNotFound.
func loadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	return decode(bufio.NewReader(f))
}

func encode(w io.Writer, ix *Index) error {
	if _, err := w.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := writeString(w, ix.documentID); err != nil {
		return fmt.Errorf("write document id: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ix.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	buf := make([]byte, ix.dimensions*4)
	for _, e := range ix.entries {
		if err := binary.Write(w, binary.LittleEndian, uint32(e.Chunk.Index)); err != nil {
			return fmt.Errorf("write chunk index: %w", err)
		}
		if err := writeString(w, e.Chunk.Text); err != nil {
			return fmt.Errorf("write chunk text: %w", err)
		}
		for i, v := range e.Vector {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

func decode(r io.Reader) (*Index, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != fileMagic {
		return nil, errors.New("not a vector index file")
	}
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	docID, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read document id: %w", err)
	}
	ix, err := NewIndex(docID, int(dim))
	if err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	ix.entries = make([]Entry, 0, n)
	buf := make([]byte, dim*4)
	for i := uint32(0); i < n; i++ {
		var idx uint32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return nil, fmt.Errorf("read chunk index: %w", err)
		}
		text, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read chunk text: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		ix.entries = append(ix.entries, Entry{
			Chunk:  models.Chunk{Index: int(idx), Text: text, DocumentID: docID},
			Vector: vec,
		})
	}
	return ix, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
