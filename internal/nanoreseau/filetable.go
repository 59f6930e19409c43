package nanoreseau

import "strings"

// FileMetaData is the lock/session state for one open Nanoréseau file
// (§3, "File metadata").
type FileMetaData struct {
	File         ApplicationFile
	LogicalNb    int
	ReservedBy   byte // 0 = unreserved
	OpenWriteBy  byte // 0 = not open for write
	OpenReadBy   map[byte]bool
}

// isReservedByOther reports whether the file is reserved by some station
// other than sid.
func (f *FileMetaData) isReservedByOther(sid byte) bool {
	return f.ReservedBy != 0 && f.ReservedBy != sid
}

// isOpenForWriteByOther reports whether the file is open for write by some
// station other than sid.
func (f *FileMetaData) isOpenForWriteByOther(sid byte) bool {
	return f.OpenWriteBy != 0 && f.OpenWriteBy != sid
}

// addReader registers sid as a reader, enforcing the lock discipline of
// §4.7.
func (f *FileMetaData) addReader(sid byte) error {
	if f.isReservedByOther(sid) {
		return NewFileError(FileAlreadyReserved)
	}
	if f.OpenWriteBy != 0 {
		if f.OpenWriteBy == sid {
			return NewFileError(FileAlreadyOpenForWrite)
		}
		return NewFileError(FileAlreadyOpenForWriteOther)
	}
	f.OpenReadBy[sid] = true
	return nil
}

// addWriter registers sid as the writer, enforcing the lock discipline of
// §4.7.
func (f *FileMetaData) addWriter(sid byte) error {
	if f.isReservedByOther(sid) {
		return NewFileError(FileAlreadyReserved)
	}
	if len(f.OpenReadBy) != 0 {
		return NewFileError(FileAlreadyOpenForRead)
	}
	if f.isOpenForWriteByOther(sid) {
		return NewFileError(FileAlreadyOpenForWriteOther)
	}
	f.OpenWriteBy = sid
	return nil
}

// reserve grants an exclusive reservation to sid, enforcing §4.7.
func (f *FileMetaData) reserve(sid byte) error {
	if f.isReservedByOther(sid) {
		return NewFileError(FileAlreadyReserved)
	}
	if f.isOpenForWriteByOther(sid) || len(f.OpenReadBy) != 0 {
		return NewFileError(FileOpen)
	}
	f.ReservedBy = sid
	return nil
}

// close releases every hold sid has on the file.
func (f *FileMetaData) close(sid byte) {
	delete(f.OpenReadBy, sid)
	if f.OpenWriteBy == sid {
		f.OpenWriteBy = 0
	}
	if f.ReservedBy == sid {
		f.ReservedBy = 0
	}
}

// holders reports whether any station still holds the file open, reserved,
// or for write.
func (f *FileMetaData) holders() bool {
	return f.ReservedBy != 0 || f.OpenWriteBy != 0 || len(f.OpenReadBy) != 0
}

// fileKey is the virtual path key = drive letter + upper-cased "NAME.EXT".
func fileKey(app ApplicationFile) string {
	return string(app.Drive) + strings.ToUpper(app.FileName)
}

// FileTable is the server's file lock manager (§4.7): a key-value table
// keyed by virtual path, plus the smallest-free logical number allocator.
type FileTable struct {
	entries map[string]*FileMetaData
}

// NewFileTable builds an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{entries: make(map[string]*FileMetaData)}
}

// GetOrCreate returns the existing entry for app, or creates one,
// allocating the smallest free logical number in 1..255.
func (t *FileTable) GetOrCreate(app ApplicationFile) (*FileMetaData, error) {
	key := fileKey(app)
	if entry, ok := t.entries[key]; ok {
		return entry, nil
	}
	logicalNb := t.freeLogicalNumber()
	if logicalNb == 0 {
		return nil, NewFileError(FileTableSaturated)
	}
	entry := &FileMetaData{File: app, LogicalNb: logicalNb, OpenReadBy: make(map[byte]bool)}
	t.entries[key] = entry
	return entry, nil
}

// freeLogicalNumber returns the smallest unused logical number in 1..255,
// or 0 if the table is saturated.
func (t *FileTable) freeLogicalNumber() int {
	used := make(map[int]bool, len(t.entries))
	for _, e := range t.entries {
		used[e.LogicalNb] = true
	}
	for i := 1; i <= 255; i++ {
		if !used[i] {
			return i
		}
	}
	return 0
}

// AddReader locks entry for reading by sid (§4.7).
func (t *FileTable) AddReader(entry *FileMetaData, sid byte) error {
	return entry.addReader(sid)
}

// AddWriter locks entry for writing by sid (§4.7).
func (t *FileTable) AddWriter(entry *FileMetaData, sid byte) error {
	return entry.addWriter(sid)
}

// Reserve grants sid an exclusive reservation on entry (§4.7).
func (t *FileTable) Reserve(entry *FileMetaData, sid byte) error {
	return entry.reserve(sid)
}

// Close releases sid's holds on entry; once no station holds it, the entry
// is removed from the table.
func (t *FileTable) Close(entry *FileMetaData, sid byte) {
	entry.close(sid)
	if !entry.holders() {
		key := fileKey(entry.File)
		delete(t.entries, key)
	}
}

// Remove deletes entry unconditionally, regardless of who still holds it
// (matching FERFI's original "del" semantics — closing by logical number
// does not check remaining holders).
func (t *FileTable) Remove(entry *FileMetaData) {
	delete(t.entries, fileKey(entry.File))
}

// ByLogicalNumber looks up the live entry with the given logical number.
func (t *FileTable) ByLogicalNumber(logicalNb int) (*FileMetaData, error) {
	for _, e := range t.entries {
		if e.LogicalNb == logicalNb {
			return e, nil
		}
	}
	return nil, NewFileError(BadLogicNumber)
}
