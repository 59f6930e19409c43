package nanoreseau

import (
	"bufio"
	"bytes"
	"testing"
)

func buildNRFileHeader(t *testing.T, typ, mode byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("*NRUSTL*")
	buf.WriteString("ABCDEFGH") // identifier
	buf.WriteByte(0x01)
	buf.WriteByte(typ)
	buf.WriteByte(mode)
	buf.Write([]byte{0, 0, 0}) // ms-dos length
	buf.WriteByte(0x00)
	buf.WriteByte(FileStatusReadWrite)
	buf.WriteByte(1) // major
	buf.WriteByte(0) // minor
	buf.Write([]byte{24, 6, 15})  // creation date 2024-06-15
	buf.Write([]byte{24, 6, 16})  // modification date
	buf.WriteByte(0)              // created_on
	buf.WriteByte(1)              // creation_language
	buf.Write(make([]byte, 46))   // reserved
	buf.Write(make([]byte, 48))   // app bytes
	return &buf
}

func TestDecodeNRFileMachineCode(t *testing.T) {
	buf := buildNRFileHeader(t, FileTypeMachine, FileModeBinary)

	// simple-code record: length=3, addr=0x2000, data
	buf.WriteByte(recSimpleCode)
	buf.Write([]byte{0x00, 0x03, 0x20, 0x00})
	buf.Write([]byte{1, 2, 3})

	// extended-code record: length=2, addr=0x3000, page=1
	buf.WriteByte(recExtCode)
	buf.Write([]byte{0x00, 0x02, 0x30, 0x00, 0x01})
	buf.Write([]byte{0xAA, 0xBB})

	// terminal extended exec addr: nul(2), addr=0x4000, page=2
	buf.WriteByte(recExtExecAddr)
	buf.Write([]byte{0x00, 0x00, 0x40, 0x00, 0x02})

	nf, err := DecodeNRFile(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if nf.Identifier != "ABCDEFGH" {
		t.Errorf("identifier = %q", nf.Identifier)
	}
	if nf.CreationDate == nil || nf.CreationDate.Year != 2024 || nf.CreationDate.Month != 6 || nf.CreationDate.Day != 15 {
		t.Errorf("creation date = %+v", nf.CreationDate)
	}
	if len(nf.Code) != 2 {
		t.Fatalf("len(code) = %d, want 2", len(nf.Code))
	}
	if nf.Code[0].Address != 0x2000 || !bytes.Equal(nf.Code[0].Data, []byte{1, 2, 3}) {
		t.Errorf("code[0] = %+v", nf.Code[0])
	}
	if nf.Code[1].Address != 0x3000 || nf.Code[1].Page != 1 || !nf.Code[1].Extended {
		t.Errorf("code[1] = %+v", nf.Code[1])
	}
	if nf.ExecAddress != 0x4000 || nf.ExecPage != 2 || !nf.ExecExtended {
		t.Errorf("exec address/page = %#x/%d", nf.ExecAddress, nf.ExecPage)
	}
}

func TestDecodeNRFileSimpleExecTerminal(t *testing.T) {
	buf := buildNRFileHeader(t, FileTypeMachine, FileModeBinary)
	buf.WriteByte(recSimpleExecAddr)
	buf.Write([]byte{0x00, 0x00, 0x12, 0x34})

	nf, err := DecodeNRFile(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if nf.ExecAddress != 0x1234 {
		t.Errorf("exec address = %#x, want 0x1234", nf.ExecAddress)
	}
	if nf.ExecExtended {
		t.Errorf("expected simple exec addr to not set Extended")
	}
}

func TestDecodeNRFileRawPayload(t *testing.T) {
	buf := buildNRFileHeader(t, FileTypeBasicProgram, FileModeASCII)
	buf.WriteString("10 PRINT \"HI\"\n")

	nf, err := DecodeNRFile(bufio.NewReader(buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(nf.RawData) != "10 PRINT \"HI\"\n" {
		t.Errorf("raw data = %q", nf.RawData)
	}
}

func TestDecodeNRFileBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOTANRFILEXXXXXXXXXXXXXXXXXXXXXX")
	if _, err := DecodeNRFile(bufio.NewReader(buf)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
