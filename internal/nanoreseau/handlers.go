package nanoreseau

import (
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// stackSavePreamble is sent ahead of the boot binary on an init call, saving
// the slave's stack before the bootstrap takes over (§4.9 "Supplemented
// features"). The target-specific variant (MO5 vs TO7) is not selected here;
// this is the TO7 sequence, matching the only one this registry's boot files
// ever reference.
var stackSavePreamble = []byte{
	0x34, 0x52, 0x11, 0x8C, 0x20, 0x80, 0x23, 0x06, 0x11, 0x8C, 0x20, 0xCC,
	0x23, 0x14, 0x1A, 0xFF, 0xCE, 0x20, 0xAC, 0x86, 0x10, 0xAE, 0xE1, 0xAF,
	0xC1, 0x4A, 0x26, 0xF9, 0x10, 0xCE, 0x20, 0xAC, 0x1C, 0x00, 0x35, 0xD2,
}

// jumpTemplate is a 7-byte machine-code jump; bytes 5-6 are overwritten with
// the big-endian execution address before sending.
var jumpTemplate = []byte{0x10, 0xCE, 0x20, 0xCC, 0x7E, 0x50, 0x00}

// currentAppSelector switches the slave's "current application" context
// before a binary file transfer begins.
var currentAppSelector = []byte{0x86, 0x01, 0xB7, 0x1F, 0xF7, 0x39}

func jumpTo(addr uint16) []byte {
	code := append([]byte(nil), jumpTemplate...)
	binary.BigEndian.PutUint16(code[5:7], addr)
	return code
}

// sendReport emits a compte-rendu (task 6) carrying data as ctx_data.
func (s *Server) sendReport(data []byte, stationID byte, delayed bool) {
	station := s.stations.Get(stationID)
	c := Consigne{
		Dest:      stationID,
		Computer:  station.Computer,
		CodeTache: TaskCopyReport,
		Delayed:   delayed,
		CtxData:   data,
	}
	if err := s.transport.SendConsigne(c); err != nil {
		slog.Error("sending compte-rendu failed", "station", stationID, "error", err)
	}
}

// sendExecuteCodeRequest pushes code to run on the slave (§4.9).
func (s *Server) sendExecuteCodeRequest(stationID byte, code []byte, delayed bool) error {
	station := s.stations.Get(stationID)
	c := Consigne{
		Dest:      stationID,
		Computer:  station.Computer,
		CodeTache: TaskExecCode,
		Delayed:   delayed,
		MsgLen:    uint16(len(code)),
		CtxData:   code,
	}
	return s.transport.SendConsigne(c)
}

// sendBinaryFile loads a Nanoréseau file from disk, switches the slave's
// current-application context, and bursts every code chunk to its
// address/page, returning the parsed file so callers can read its
// execution address (§4.9).
func (s *Server) sendBinaryFile(app ApplicationFile, stationID byte) (*NRFile, error) {
	nf, err := ReadNRFile(s.filePath(app))
	if err != nil {
		return nil, err
	}
	if err := s.sendExecuteCodeRequest(stationID, currentAppSelector, false); err != nil {
		return nil, err
	}
	for _, chunk := range nf.Code {
		page := chunk.Page
		if !chunk.Extended {
			page = 0
		}
		if err := s.transport.SendData(chunk.Address, page, chunk.Data, stationID); err != nil {
			return nil, err
		}
	}
	return nf, nil
}

// handleInitCall handles a slave's initial-call broadcast (task 0): look up
// its signature in the registry, push the bootstrap binary, and jump to it.
func handleInitCall(srv *Server, c Consigne, stationID byte) {
	signature := hex.EncodeToString(c.CtxData[:32])
	slog.Info("looking up station signature", "station", stationID, "signature", signature)

	bootFile, ok := srv.registry.Lookup(c.CtxData[:32])
	if !ok {
		slog.Info("station signature not found in registry", "station", stationID, "signature", signature)
		srv.disconnectStation(stationID)
		return
	}

	if err := srv.sendExecuteCodeRequest(stationID, stackSavePreamble, false); err != nil {
		slog.Error("sending stack-save preamble failed", "station", stationID, "error", err)
		srv.disconnectStation(stationID)
		return
	}
	nf, err := srv.sendBinaryFile(bootFile, stationID)
	if err != nil {
		slog.Error("sending boot binary failed", "station", stationID, "error", err)
		srv.disconnectStation(stationID)
		return
	}
	if err := srv.sendExecuteCodeRequest(stationID, jumpTo(nf.ExecAddress), true); err != nil {
		slog.Error("sending boot jump failed", "station", stationID, "error", err)
	}
	srv.disconnectStation(stationID)
}

// handleCHBIN loads a binary program file on demand (task 9, app 55).
func handleCHBIN(srv *Server, c Consigne, stationID byte) {
	app := decodeApplicationFile(c.CtxData[:12])
	mode := c.CtxData[12]
	slog.Info("CHBIN request", "station", stationID, "file", app.FileName, "mode", mode)

	nf, err := srv.sendBinaryFile(app, stationID)
	if err != nil {
		slog.Error("CHBIN load failed", "station", stationID, "file", app.FileName, "error", err)
		srv.disconnectStation(stationID)
		return
	}
	slog.Info("CHBIN loaded file", "station", stationID, "file", app.FileName)

	report := make([]byte, 4)
	binary.BigEndian.PutUint16(report[1:3], nf.ExecAddress)
	report[3] = nf.ExecPage
	srv.sendReport(report, stationID, false)

	if err := srv.sendExecuteCodeRequest(stationID, jumpTo(nf.ExecAddress), true); err != nil {
		slog.Error("sending CHBIN jump failed", "station", stationID, "error", err)
	}
	srv.disconnectStation(stationID)
}

// handleCLEAR resets a station's identifier and catalog session (task 9,
// app 56).
func handleCLEAR(srv *Server, c Consigne, stationID byte) {
	srv.stations.Get(stationID).Clean()
	srv.sendReport([]byte{0}, stationID, false)
	slog.Info("CLEAR executed", "station", stationID)
	srv.disconnectStation(stationID)
}

// handleSYSINF reports server version, OS type and available drives (task
// 9, app 49).
func handleSYSINF(srv *Server, c Consigne, stationID byte) {
	drives := srv.availableDrives()
	var mask uint16
	for i, present := range drives {
		if present {
			mask |= 1 << uint(i)
		}
	}
	report := make([]byte, 7)
	report[0] = 0
	report[1] = ServerVersionMajor
	report[2] = ServerVersionMinor
	report[3] = ServerOSType
	binary.BigEndian.PutUint16(report[4:6], mask)
	report[6] = 0
	srv.sendReport(report, stationID, false)
	slog.Info("SYSINF executed", "station", stationID)
	srv.disconnectStation(stationID)
}

// handleDATE reports the current date and time (task 9, app 32). The
// tenths-of-second field is always 0 — see DESIGN.md.
func handleDATE(srv *Server, c Consigne, stationID byte) {
	now := time.Now()
	report := []byte{
		0,
		byte(now.Day()),
		byte(now.Month()),
		byte(now.Year() % 100),
		byte(now.Hour()),
		byte(now.Minute()),
		byte(now.Second()),
		0,
	}
	slog.Info("DATE request", "station", stationID)
	srv.sendReport(report, stationID, false)
	srv.disconnectStation(stationID)
}

// handleDSKF reports free space on a drive (task 9, app 51). Free space is
// always reported as 0xFFFF — this server does not track it.
func handleDSKF(srv *Server, c Consigne, stationID byte) {
	disk := c.CtxData[0]
	drives := srv.availableDrives()
	slog.Info("DSKF request", "station", stationID, "disk", disk)

	var errCode byte
	if int(disk) >= len(drives) || !drives[disk] {
		errCode = BadDisk
	}
	report := make([]byte, 3)
	report[0] = errCode
	binary.BigEndian.PutUint16(report[1:3], 0xFFFF)
	srv.sendReport(report, stationID, false)
	srv.disconnectStation(stationID)
}

// handleID registers a station identifier, rejecting duplicates held by any
// other station (task 9, app 33).
func handleID(srv *Server, c Consigne, stationID byte) {
	identifier := string(c.CtxData[:8])
	slog.Info("ID request", "station", stationID, "identifier", identifier)

	var errCode byte
	if holder := srv.stations.FindByIdentifier(identifier); holder != 0 && holder != stationID {
		errCode = DuplicateID
	} else {
		srv.stations.Get(stationID).Identifier = identifier
	}
	srv.sendReport([]byte{errCode}, stationID, true)
	srv.disconnectStation(stationID)
}

// handleOUVFL opens a file for reading, allocating its logical number on
// first open (task 9, app 36).
func handleOUVFL(srv *Server, c Consigne, stationID byte) {
	app := decodeApplicationFile(c.CtxData[:12])
	slog.Info("OUVFL request", "station", stationID, "file", app.FileName)

	report := make([]byte, 7)
	logicalNb, size, ftype, fmode, err := srv.openFileForRead(app, stationID)
	if err != nil {
		slog.Info("OUVFL failed", "station", stationID, "file", app.FileName, "error", err)
		report[0] = ErrorCode(err)
	} else {
		report[0] = 0
		report[1] = byte(logicalNb)
		report[2] = ftype
		report[3] = fmode
		// size[2], size[1], size[0]: most-significant byte first, per the
		// wire order this server documents (see DESIGN.md).
		report[4] = byte(size >> 16)
		report[5] = byte(size >> 8)
		report[6] = byte(size)
	}
	srv.sendReport(report, stationID, true)
	srv.disconnectStation(stationID)
}

// openFileForRead resolves app to an on-disk file, registers a reader hold
// in the file table, and returns its logical number and header fields.
func (s *Server) openFileForRead(app ApplicationFile, stationID byte) (logicalNb int, size uint32, ftype, fmode byte, err error) {
	path := s.filePath(app)
	if _, statErr := os.Stat(path); statErr != nil {
		return 0, 0, 0, 0, NewFileError(FileNotExisting)
	}

	entry, err := s.files.GetOrCreate(app)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if err := s.files.AddReader(entry, stationID); err != nil {
		return 0, 0, 0, 0, err
	}

	nf, readErr := ReadNRFile(path)
	if readErr != nil {
		return 0, 0, 0, 0, NewFileError(BadDisk)
	}
	return entry.LogicalNb, nf.MSDosLen, nf.Type, nf.FileMode, nil
}

// handleLIRFI reads a slice of an open file's content (task 9, app 40).
func handleLIRFI(srv *Server, c Consigne, stationID byte) {
	logicalNb := int(c.CtxData[0])
	offset := int(c.CtxData[1])<<16 | int(c.CtxData[2])<<8 | int(c.CtxData[3])
	slog.Info("LIRFI request", "station", stationID, "logical_nb", logicalNb, "offset", offset, "requested", c.MsgLen)

	report := make([]byte, 3)
	entry, err := srv.files.ByLogicalNumber(logicalNb)
	if err != nil {
		report[0] = ErrorCode(err)
		srv.sendReport(report, stationID, true)
		srv.disconnectStation(stationID)
		return
	}

	nf, readErr := ReadNRFile(srv.filePath(entry.File))
	if readErr != nil {
		report[0] = BadDisk
		srv.sendReport(report, stationID, true)
		srv.disconnectStation(stationID)
		return
	}

	data := nf.RawData
	readBytes := int(c.MsgLen)
	var errCode byte
	if readBytes > len(data) {
		readBytes = len(data)
		errCode = EndOfFile
	}
	end := offset + readBytes
	if end > len(data) {
		end = len(data)
	}
	start := offset
	if start > end {
		start = end
	}
	if sendErr := srv.transport.SendData(c.MsgAddr, c.Page, data[start:end], stationID); sendErr != nil {
		slog.Error("LIRFI data burst failed", "station", stationID, "error", sendErr)
	}

	report[0] = errCode
	binary.BigEndian.PutUint16(report[1:3], uint16(readBytes))
	srv.sendReport(report, stationID, true)
	srv.disconnectStation(stationID)
}

// handleFERFI closes an open file (task 9, app 42).
func handleFERFI(srv *Server, c Consigne, stationID byte) {
	logicalNb := int(c.CtxData[0])
	slog.Info("FERFI request", "station", stationID, "logical_nb", logicalNb)

	var errCode byte
	entry, err := srv.files.ByLogicalNumber(logicalNb)
	if err != nil {
		errCode = ErrorCode(err)
	} else {
		srv.files.Remove(entry)
	}
	srv.sendReport([]byte{errCode}, stationID, true)
	srv.disconnectStation(stationID)
}

// catalogEntrySize is the fixed wire size of one CATP/CATS record: 8-byte
// name, 3-byte extension, 3-byte size (big-endian), day, month, year%100.
// The distilled requirements mislabel this a "15-byte" record; the field
// list itself (and the original source's '>8s3sBBBBBB' packing) sums to 17
// — see DESIGN.md.
const catalogEntrySize = 17

// handleCATP builds a station's catalog listing from a wildcard filter and
// emits the first chunk (task 9, app 34).
func handleCATP(srv *Server, c Consigne, stationID byte) {
	filter := decodeApplicationFile(c.CtxData[:12])
	slog.Info("CATP request", "station", stationID, "filter", filter.FileName)

	station := srv.stations.Get(stationID)
	station.CatalogListing = srv.listCatalog(filter)
	station.CatalogCursor = 0
	sendCatalogChunk(srv, c, stationID)
}

// handleCATS emits the next chunk of an in-progress catalog listing (task
// 9, app 35).
func handleCATS(srv *Server, c Consigne, stationID byte) {
	sendCatalogChunk(srv, c, stationID)
}

// listCatalog scans the filter's drive directory and returns every entry
// whose padded 8.3 name matches, '?' standing for one of [A-Za-z0-9 ].
func (s *Server) listCatalog(filter ApplicationFile) []CatalogEntry {
	dir := s.filePath(ApplicationFile{Drive: filter.Drive, FileName: ""})
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("reading catalog directory failed", "dir", dir, "error", err)
		return nil
	}

	filterName, filterExt := splitNameExt(filter.FileName)
	filterName = padSpaces(filterName, 8)
	filterExt = padSpaces(filterExt, 3)

	var matches []CatalogEntry
	for _, e := range entries {
		name, ext := splitNameExt(e.Name())
		paddedName := padSpaces(name, 8)
		paddedExt := padSpaces(ext, 3)
		if !wildcardMatch(filterName, paddedName) || !wildcardMatch(filterExt, paddedExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		matches = append(matches, CatalogEntry{
			Name:      paddedName,
			Extension: paddedExt,
			Size:      info.Size(),
			ModDay:    info.ModTime().Day(),
			ModMonth:  int(info.ModTime().Month()),
			ModYear:   info.ModTime().Year(),
			IsDir:     e.IsDir(),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name+matches[i].Extension < matches[j].Name+matches[j].Extension })
	return matches
}

// sendCatalogChunk emits as many catalog records as fit in msg_len, then a
// compte-rendu summarizing the chunk (§4.9).
func sendCatalogChunk(srv *Server, c Consigne, stationID byte) {
	station := srv.stations.Get(stationID)

	var errCode byte
	var count int
	var buffer []byte

	switch {
	case c.MsgLen < catalogEntrySize:
		errCode = RXBufferTooSmall
	case len(station.CatalogListing) == 0:
		errCode = FileNotExisting
	default:
		remaining := station.CatalogListing[station.CatalogCursor:]
		maxEntries := int(c.MsgLen) / catalogEntrySize
		if maxEntries > len(remaining) {
			maxEntries = len(remaining)
		}
		count = maxEntries
		buffer = make([]byte, count*catalogEntrySize)
		for i := 0; i < count; i++ {
			entry := remaining[i]
			off := i * catalogEntrySize
			copy(buffer[off:off+8], entry.Name)
			copy(buffer[off+8:off+11], entry.Extension)
			buffer[off+11] = byte(entry.Size >> 16)
			buffer[off+12] = byte(entry.Size >> 8)
			buffer[off+13] = byte(entry.Size)
			buffer[off+14] = byte(entry.ModDay)
			buffer[off+15] = byte(entry.ModMonth)
			buffer[off+16] = byte(entry.ModYear % 100)
			if entry.IsDir {
				buffer[off] |= 0x80
			}
		}
		station.CatalogCursor += count
		// Corrected fencepost: end-of-catalog exactly when every entry has
		// been sent, not one past it — see DESIGN.md.
		if station.CatalogCursor == len(station.CatalogListing) {
			errCode = EndOfCatalog
		}
	}

	if len(buffer) > 0 {
		if err := srv.transport.SendData(c.MsgAddr, 0, buffer, stationID); err != nil {
			slog.Error("catalog data burst failed", "station", stationID, "error", err)
		}
	}

	osType := byte(0)
	if ServerOSType == 2 {
		osType = 1
	}
	report := make([]byte, 4)
	report[0] = errCode
	binary.BigEndian.PutUint16(report[1:3], uint16(count))
	report[3] = osType
	srv.sendReport(report, stationID, true)
	srv.disconnectStation(stationID)
}

// splitNameExt splits a file name into its base and extension (without the
// dot), matching the original's rsplit('.', 1) behavior: no dot means no
// extension.
func splitNameExt(fileName string) (name, ext string) {
	idx := strings.LastIndexByte(fileName, '.')
	if idx < 0 {
		return fileName, ""
	}
	return fileName[:idx], fileName[idx+1:]
}

func padSpaces(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

// wildcardMatch compares two equal-length, space-padded 8.3 components
// case-insensitively; '?' in pattern matches any letter, digit or space.
func wildcardMatch(pattern, s string) bool {
	if len(pattern) != len(s) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		pc, sc := pattern[i], s[i]
		if pc == '?' {
			if !isNameChar(sc) {
				return false
			}
			continue
		}
		if toUpperASCII(pc) != toUpperASCII(sc) {
			return false
		}
	}
	return true
}

func isNameChar(b byte) bool {
	return b == ' ' || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func toUpperASCII(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
