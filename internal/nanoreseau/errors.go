package nanoreseau

import "fmt"

// Error codes reported in the first byte of a compte-rendu (§7).
//
// Not every code is reachable from an implemented handler: tasks the server
// only stubs (writes, indexed files, printer spooling, SYSTEM/TELE) keep
// their original error constants so a future handler can reject with the
// precise code instead of a generic one.
const (
	BadDisk                     = 128
	FileNameSyntaxError         = 129
	BadIdentification           = 130
	TransmitError               = 131
	DuplicateID                 = 132
	EndOfCatalog                = 133
	FileNotExisting             = 134
	AmbiguousFileName           = 135
	WrongIdentification         = 137
	FileAlreadyReserved         = 138
	FileAlreadyOpenForWrite     = 139
	LogicNumberTableSaturated   = 140
	FileTableSaturated          = 141
	FileAlreadyExists           = 142
	FileWithoutNetworkHeader    = 143
	FileReadOnly                = 144
	FileAlreadyOpenForRead      = 145
	FileAlreadyOpenForWriteOther = 146
	BadLogicNumber              = 147
	ServerDiskExchanged         = 148
	EndOfFile                   = 149
	FileOpen                    = 151
	FileNotIndexed              = 153
	NonExistingFunction         = 154
	ServerDiskError             = 155
	RXBufferTooSmall            = 157
	RequestedRXLengthTooLong    = 160
	ServerDiskFull              = 161
	BadParameters               = 162
	EndOfSpoolFile              = 163
	SpoolFileNonExisting        = 164
	SaturatedSpool              = 165
	BinaryFileLoadError         = 166
	PrinterNonExisting          = 167
	IODeviceNotOpen             = 169
	IndexedFileMaxLength        = 180
	RecordNonExisting           = 181
	ReservedRecord              = 182
	TooMuchRecords              = 183
	ReservationTableFull        = 184
	RecordOffsetTooBig          = 185
	FilePartiallyReserved       = 186
)

var errorDescriptions = map[int]string{
	BadDisk:                      "bad disk",
	FileNameSyntaxError:          "file name syntax error",
	BadIdentification:            "bad identification",
	TransmitError:                "transmit error",
	DuplicateID:                  "duplicate identifier",
	EndOfCatalog:                 "end of catalog",
	FileNotExisting:              "file not existing",
	AmbiguousFileName:            "ambiguous file name",
	WrongIdentification:         "wrong identification",
	FileAlreadyReserved:          "file already reserved",
	FileAlreadyOpenForWrite:      "file already open for write",
	LogicNumberTableSaturated:    "logic number table saturated",
	FileTableSaturated:           "file table saturated",
	FileAlreadyExists:            "file already exists",
	FileWithoutNetworkHeader:     "file without network header",
	FileReadOnly:                 "file read-only",
	FileAlreadyOpenForRead:       "file already open for read",
	FileAlreadyOpenForWriteOther: "file already open for write by another station",
	BadLogicNumber:               "bad logic number",
	ServerDiskExchanged:          "server disk exchanged",
	EndOfFile:                    "end of file",
	FileOpen:                     "file open",
	FileNotIndexed:               "file not indexed",
	NonExistingFunction:          "non existing function",
	ServerDiskError:              "server disk error",
	RXBufferTooSmall:             "receive buffer too small",
	RequestedRXLengthTooLong:     "requested receive length too long",
	ServerDiskFull:               "server disk full",
	BadParameters:                "bad parameters",
	EndOfSpoolFile:               "end of spool file",
	SpoolFileNonExisting:         "spool file non existing",
	SaturatedSpool:               "saturated spool",
	BinaryFileLoadError:          "binary file load error",
	PrinterNonExisting:           "printer non existing",
	IODeviceNotOpen:              "I/O device not open",
	IndexedFileMaxLength:         "indexed file max length",
	RecordNonExisting:            "record non existing",
	ReservedRecord:               "reserved record",
	TooMuchRecords:               "too much records",
	ReservationTableFull:         "reservation table full",
	RecordOffsetTooBig:           "record offset too big",
	FilePartiallyReserved:        "file partially reserved",
}

// FileError is a domain error carrying a Nanoréseau error code (§7). It is
// the only error type a task handler needs to translate into a
// compte-rendu byte.
type FileError struct {
	Code int
}

func (e *FileError) Error() string {
	if desc, ok := errorDescriptions[e.Code]; ok {
		return fmt.Sprintf("nanoreseau error %d (%s)", e.Code, desc)
	}
	return fmt.Sprintf("nanoreseau error %d", e.Code)
}

// NewFileError wraps a numeric error code as a *FileError.
func NewFileError(code int) *FileError {
	return &FileError{Code: code}
}

// ErrorCode extracts the Nanoréseau error code from err, returning 0
// (success) if err is nil and BadParameters if err is some other error.
func ErrorCode(err error) byte {
	if err == nil {
		return 0
	}
	if fe, ok := err.(*FileError); ok {
		return byte(fe.Code)
	}
	return BadParameters
}
