package nanoreseau

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// File types (§3).
const (
	FileTypeBasicProgram = 0
	FileTypeBasicData    = 1
	FileTypeMachine      = 2
	FileTypeSource       = 3
	FileTypeIndexed      = 5
)

// File modes and status bytes (§3).
const (
	FileModeBinary = 0x00
	FileModeASCII  = 0xFF

	FileStatusReadWrite = 0x00
	FileStatusReadOnly  = 0xFF
)

// Record stream tags (§4.3).
const (
	recSimpleCode     = 0x00
	recSimpleExecAddr = 0xFF
	recExtendedDesc   = 0x01
	recExtCode        = 0x02
	recExtExecAddr    = 0x03
)

var nrFileMagic = [8]byte{'*', 'N', 'R', 'U', 'S', 'T', 'L', '*'}

// NRDate is a creation/modification date as stored on disk: a two-digit
// year (expanded per the rule below), month and day.
type NRDate struct {
	Year, Month, Day int
}

// decodeNRDate interprets 3 raw bytes (year, month, day); returns nil if
// month or day is zero (no date recorded).
func decodeNRDate(b [3]byte) *NRDate {
	year := int(b[0])
	if year < 80 {
		year += 2000
	} else {
		year += 1900
	}
	month := int(b[1])
	day := int(b[2])
	if month == 0 || day == 0 {
		return nil
	}
	return &NRDate{Year: year, Month: month, Day: day}
}

// BinaryCode is one address/page-qualified code segment from a machine-code
// file's record stream (§4.3).
type BinaryCode struct {
	Address uint16
	Page    byte // meaningful only when Extended is true
	Extended bool
	Data    []byte
}

// NRFile is a parsed Nanoréseau file (§3).
type NRFile struct {
	Identifier       string
	Type             byte
	FileMode         byte
	MSDosLen         uint32
	FileStatus       byte
	VersionMajor     byte
	VersionMinor     byte
	CreationDate     *NRDate
	ModificationDate *NRDate
	CreatedOn        byte
	CreationLanguage byte
	AppBytes         [48]byte

	// Populated when FileMode == FileModeBinary && Type == FileTypeMachine.
	Code        []BinaryCode
	ExecAddress uint16
	ExecPage    byte
	ExecExtended bool

	// Populated for any other type (raw trailing bytes, including indexed
	// files, which are read but not further interpreted — §4.3).
	RawData []byte
}

// ReadNRFile opens and parses the Nanoréseau file at path.
func ReadNRFile(path string) (*NRFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening nanoreseau file: %w", err)
	}
	defer f.Close()
	return DecodeNRFile(bufio.NewReader(f))
}

// DecodeNRFile parses a Nanoréseau file from r.
func DecodeNRFile(r *bufio.Reader) (*NRFile, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if magic != nrFileMagic {
		return nil, fmt.Errorf("bad file: missing *NRUSTL* header")
	}

	var nf NRFile

	id := make([]byte, 8)
	if _, err := io.ReadFull(r, id); err != nil {
		return nil, fmt.Errorf("reading identifier: %w", err)
	}
	nf.Identifier = string(id)

	anchor1, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading anchor: %w", err)
	}
	if anchor1 != 0x01 {
		return nil, fmt.Errorf("bad file: anchor byte at offset 16 is %#x, want 0x01", anchor1)
	}

	nf.Type, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading type: %w", err)
	}
	nf.FileMode, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading file mode: %w", err)
	}

	var lenBytes [3]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return nil, fmt.Errorf("reading ms-dos length: %w", err)
	}
	nf.MSDosLen = uint32(lenBytes[0]) | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])<<16

	anchor2, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading anchor: %w", err)
	}
	if anchor2 != 0x00 {
		return nil, fmt.Errorf("bad file: anchor byte at offset 22 is %#x, want 0x00", anchor2)
	}

	nf.FileStatus, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	nf.VersionMajor, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	nf.VersionMinor, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}

	var creation, modification [3]byte
	if _, err := io.ReadFull(r, creation[:]); err != nil {
		return nil, fmt.Errorf("reading creation date: %w", err)
	}
	if _, err := io.ReadFull(r, modification[:]); err != nil {
		return nil, fmt.Errorf("reading modification date: %w", err)
	}
	nf.CreationDate = decodeNRDate(creation)
	nf.ModificationDate = decodeNRDate(modification)

	nf.CreatedOn, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading created-on: %w", err)
	}
	nf.CreationLanguage, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading creation language: %w", err)
	}

	if _, err := io.CopyN(io.Discard, r, 46); err != nil {
		return nil, fmt.Errorf("skipping reserved bytes: %w", err)
	}
	if _, err := io.ReadFull(r, nf.AppBytes[:]); err != nil {
		return nil, fmt.Errorf("reading application bytes: %w", err)
	}

	switch {
	case nf.FileMode == FileModeBinary && nf.Type == FileTypeMachine:
		if err := nf.readRecordStream(r); err != nil {
			return nil, err
		}
	default:
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading raw payload: %w", err)
		}
		nf.RawData = raw
	}

	return &nf, nil
}

// readRecordStream parses the binary record stream (§4.3) into nf.Code and
// nf.ExecAddress/ExecPage.
func (nf *NRFile) readRecordStream(r *bufio.Reader) error {
	for {
		tag, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading record tag: %w", err)
		}

		switch tag {
		case recSimpleCode:
			var hdr [4]byte
			if _, err := io.ReadFull(r, hdr[:]); err != nil {
				return fmt.Errorf("reading simple-code header: %w", err)
			}
			length := binary.BigEndian.Uint16(hdr[0:2])
			addr := binary.BigEndian.Uint16(hdr[2:4])
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return fmt.Errorf("reading simple-code data: %w", err)
			}
			nf.Code = append(nf.Code, BinaryCode{Address: addr, Data: data})

		case recSimpleExecAddr:
			var rest [4]byte
			if _, err := io.ReadFull(r, rest[:]); err != nil {
				return fmt.Errorf("reading simple-exec-addr: %w", err)
			}
			nf.ExecAddress = binary.BigEndian.Uint16(rest[2:4])
			return nil

		case recExtendedDesc:
			var desc [37]byte
			if _, err := io.ReadFull(r, desc[:]); err != nil {
				return fmt.Errorf("reading extended description: %w", err)
			}
			// desc layout: machine_type, code_language, loading_byte, u16 nul, 32-byte name.
			// Descriptive fields only; not currently surfaced on NRFile.

		case recExtCode:
			var hdr [5]byte
			if _, err := io.ReadFull(r, hdr[:]); err != nil {
				return fmt.Errorf("reading extended-code header: %w", err)
			}
			length := binary.BigEndian.Uint16(hdr[0:2])
			addr := binary.BigEndian.Uint16(hdr[2:4])
			page := hdr[4]
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return fmt.Errorf("reading extended-code data: %w", err)
			}
			nf.Code = append(nf.Code, BinaryCode{Address: addr, Page: page, Extended: true, Data: data})

		case recExtExecAddr:
			var rest [5]byte
			if _, err := io.ReadFull(r, rest[:]); err != nil {
				return fmt.Errorf("reading extended-exec-addr: %w", err)
			}
			nf.ExecAddress = binary.BigEndian.Uint16(rest[2:4])
			nf.ExecPage = rest[4]
			nf.ExecExtended = true
			return nil

		default:
			// Unknown tags terminate iteration (§4.3).
			return nil
		}
	}
}
