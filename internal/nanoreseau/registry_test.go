package nanoreseau

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

func appFileBytes(drive byte, name, ext string) []byte {
	b := make([]byte, 12)
	b[0] = drive - 0x40
	copy(b[1:9], padRight(name, 8))
	copy(b[9:12], padRight(ext, 3))
	return b
}

func TestDecodeRegistryBasic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(3)
	buf.WriteByte(3)
	buf.Write(appFileBytes('A', "MENU", "")[:9])
	buf.Write(make([]byte, 4))
	buf.Write(make([]byte, 10))
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(1)

	sig := make([]byte, 32)
	for i := range sig {
		sig[i] = byte(i)
	}
	buf.Write(sig)
	buf.Write(appFileBytes('B', "GAME", "BAS"))

	reg, err := DecodeRegistry(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reg.VersionMajor != 3 || reg.VersionMinor != 3 {
		t.Errorf("version = %d.%d", reg.VersionMajor, reg.VersionMinor)
	}
	if len(reg.Identifiers) != 1 {
		t.Fatalf("len(identifiers) = %d, want 1", len(reg.Identifiers))
	}
	app, ok := reg.Lookup(sig)
	if !ok {
		t.Fatal("expected signature to be found")
	}
	if app.Drive != 'B' || app.FileName != "GAME.BAS" {
		t.Errorf("app = %+v", app)
	}
}

func TestDecodeRegistryDuplicateSignatureLastWins(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(3)
	buf.WriteByte(3)
	buf.Write(appFileBytes('A', "MENU", "")[:9])
	buf.Write(make([]byte, 4))
	buf.Write(make([]byte, 10))
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(2)

	sig := make([]byte, 32)
	buf.Write(sig)
	buf.Write(appFileBytes('A', "FIRST", "BAS"))
	buf.Write(sig)
	buf.Write(appFileBytes('B', "SECOND", "BAS"))

	reg, err := DecodeRegistry(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	app, ok := reg.Lookup(sig)
	if !ok {
		t.Fatal("expected signature to be found")
	}
	if app.Drive != 'B' || app.FileName != "SECOND.BAS" {
		t.Errorf("expected last-wins entry, got %+v", app)
	}
}
