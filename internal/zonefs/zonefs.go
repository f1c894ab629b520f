// Package zonefs translates (zone, file_number, file_type) triples into
// filesystem paths, and owns the open/rotate lifecycle of one zone's live
// (data, index) file pair.
package zonefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ozonedb/internal/errs"
	"ozonedb/internal/model"
)

// numberWidth is the zero-padded digit width of a file number, grouped in
// threes with underscores for readability, e.g. "000_000_000_000_042".
const numberWidth = 15

// FormatFileNumber renders n as a zero-padded, underscore-grouped decimal.
func FormatFileNumber(n uint64) string {
	digits := fmt.Sprintf("%0*d", numberWidth, n)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('_')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ParseFileNumber is the inverse of FormatFileNumber, tolerant of the
// underscore grouping.
func ParseFileNumber(name string) (uint64, error) {
	clean := strings.ReplaceAll(name, "_", "")
	n, err := strconv.ParseUint(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("zonefs: invalid file number %q: %w", name, err)
	}
	return n, nil
}

// Dir owns one zone's root directory and its size budget.
type Dir struct {
	Root          string
	FileSizeLimit int64
}

// NewDir creates the zone directory if it does not already exist.
func NewDir(root string, fileSizeLimit int64) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIO, "zonefs: create zone directory", err)
	}
	return &Dir{Root: root, FileSizeLimit: fileSizeLimit}, nil
}

// PathFor returns the path for a given file number and type.
func (d *Dir) PathFor(fileNumber uint64, ft model.FileType) string {
	return filepath.Join(d.Root, FormatFileNumber(fileNumber)+"."+ft.Ext())
}

// ExistingFileNumbers lists the file numbers present in the zone
// directory (by inspecting .dat files), in ascending order.
func (d *Dir) ExistingFileNumbers() ([]uint64, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "zonefs: read zone directory", err)
	}
	var nums []uint64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".dat") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".dat")
		n, err := ParseFileNumber(base)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums, nil
}

// LivePair is the zone's currently-open, appendable data+index file pair.
type LivePair struct {
	FileNumber  uint64
	DataFile    *os.File
	IndexFile   *os.File
	DataOffset  uint64
	IndexOffset uint64
}

// OpenLive opens (creating if needed) the data and index files for
// fileNumber in append mode, reporting their current sizes as the
// initial offsets.
func (d *Dir) OpenLive(fileNumber uint64) (*LivePair, error) {
	dataPath := d.PathFor(fileNumber, model.FileTypeData)
	indexPath := d.PathFor(fileNumber, model.FileTypeIndex)

	dataFile, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "zonefs: open data file", err)
	}
	indexFile, err := os.OpenFile(indexPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		dataFile.Close()
		return nil, errs.Wrap(errs.KindIO, "zonefs: open index file", err)
	}

	dataInfo, err := dataFile.Stat()
	if err != nil {
		dataFile.Close()
		indexFile.Close()
		return nil, errs.Wrap(errs.KindIO, "zonefs: stat data file", err)
	}
	indexInfo, err := indexFile.Stat()
	if err != nil {
		dataFile.Close()
		indexFile.Close()
		return nil, errs.Wrap(errs.KindIO, "zonefs: stat index file", err)
	}

	return &LivePair{
		FileNumber:  fileNumber,
		DataFile:    dataFile,
		IndexFile:   indexFile,
		DataOffset:  uint64(dataInfo.Size()),
		IndexOffset: uint64(indexInfo.Size()),
	}, nil
}

// Close closes both files of the live pair.
func (p *LivePair) Close() error {
	err1 := p.DataFile.Close()
	err2 := p.IndexFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// OpenForRead opens a (possibly archived) file for random-access reads.
func (d *Dir) OpenForRead(fileNumber uint64, ft model.FileType) (*os.File, error) {
	f, err := os.Open(d.PathFor(fileNumber, ft))
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "zonefs: open file for read", err)
	}
	return f, nil
}

// Remove deletes both files of fileNumber, e.g. after garbage collection.
func (d *Dir) Remove(fileNumber uint64) error {
	dataErr := os.Remove(d.PathFor(fileNumber, model.FileTypeData))
	indexErr := os.Remove(d.PathFor(fileNumber, model.FileTypeIndex))
	if dataErr != nil && !os.IsNotExist(dataErr) {
		return errs.Wrap(errs.KindIO, "zonefs: remove data file", dataErr)
	}
	if indexErr != nil && !os.IsNotExist(indexErr) {
		return errs.Wrap(errs.KindIO, "zonefs: remove index file", indexErr)
	}
	return nil
}

// WouldExceedLimit reports whether appending appendLen bytes to the live
// data file would exceed the zone's per-file size limit.
func (d *Dir) WouldExceedLimit(currentOffset uint64, appendLen int) bool {
	if d.FileSizeLimit <= 0 {
		return false
	}
	return int64(currentOffset)+int64(appendLen) > d.FileSizeLimit
}
