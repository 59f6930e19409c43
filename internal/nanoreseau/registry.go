package nanoreseau

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ApplicationFile is a 12-byte application-file descriptor (§3): a drive
// plus an 8.3 file name.
type ApplicationFile struct {
	Drive    byte // 'A'..
	FileName string
}

// decodeApplicationFile reads the drive-index + padded-name + 3-byte
// extension layout shared by NR3.DAT's exit-file descriptor (9 bytes: 1
// drive + 5 name + 3 ext) and its identifier table (12 bytes: 1 drive + 8
// name + 3 ext) — the name field is whatever remains between the drive
// byte and the trailing 3-byte extension. The drive letter is 0x40 plus the
// drive index, so index 1 is 'A'.
func decodeApplicationFile(b []byte) ApplicationFile {
	drive := 0x40 + b[0]
	name := trimPadded(b[1 : len(b)-3])
	ext := trimPadded(b[len(b)-3:])
	fileName := name
	if ext != "" {
		fileName += "." + ext
	}
	return ApplicationFile{Drive: byte(drive), FileName: fileName}
}

func trimPadded(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// Registry is the parsed NR3.DAT configuration file (§3/§4.4).
type Registry struct {
	VersionMajor byte
	VersionMinor byte
	ExitFile     ApplicationFile
	Printers     [4]byte
	LogicalDisks [10]byte
	ListingDisk  byte
	SystemByte   byte

	// Identifiers maps the lowercase hex encoding of a 32-byte station
	// signature to the application file it should boot (§4.4). Last-wins
	// on duplicate signatures.
	Identifiers map[string]ApplicationFile
}

// ReadRegistry opens and parses the NR3.DAT file at path.
func ReadRegistry(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	defer f.Close()
	return DecodeRegistry(bufio.NewReader(f))
}

// DecodeRegistry parses an NR3.DAT configuration stream.
func DecodeRegistry(r *bufio.Reader) (*Registry, error) {
	var reg Registry
	reg.Identifiers = make(map[string]ApplicationFile)

	var err error
	reg.VersionMajor, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading version major: %w", err)
	}
	reg.VersionMinor, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading version minor: %w", err)
	}

	exitBytes := make([]byte, 9)
	if _, err := io.ReadFull(r, exitBytes); err != nil {
		return nil, fmt.Errorf("reading exit file descriptor: %w", err)
	}
	reg.ExitFile = decodeApplicationFile(exitBytes)

	if _, err := io.ReadFull(r, reg.Printers[:]); err != nil {
		return nil, fmt.Errorf("reading printer bytes: %w", err)
	}
	if _, err := io.ReadFull(r, reg.LogicalDisks[:]); err != nil {
		return nil, fmt.Errorf("reading logical disk bytes: %w", err)
	}
	reg.ListingDisk, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading listing disk: %w", err)
	}
	reg.SystemByte, err = r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading system byte: %w", err)
	}

	idCount, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reading identifier count: %w", err)
	}

	for i := 0; i < int(idCount); i++ {
		sig := make([]byte, 32)
		if _, err := io.ReadFull(r, sig); err != nil {
			return nil, fmt.Errorf("reading signature %d: %w", i, err)
		}
		appBytes := make([]byte, 12)
		if _, err := io.ReadFull(r, appBytes); err != nil {
			return nil, fmt.Errorf("reading application file %d: %w", i, err)
		}
		key := hex.EncodeToString(sig)
		reg.Identifiers[key] = decodeApplicationFile(appBytes)
	}

	return &reg, nil
}

// Lookup returns the application file registered for the given 32-byte
// signature, and whether it was found.
func (r *Registry) Lookup(signature []byte) (ApplicationFile, bool) {
	key := hex.EncodeToString(signature)
	app, ok := r.Identifiers[key]
	return app, ok
}
