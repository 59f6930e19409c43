package nanoreseau

import (
	"bytes"
	"testing"
)

func TestEncodeConsigneRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		c    Consigne
	}{
		{"no context data", Consigne{Dest: 1, CodeTache: TaskFile, CodeApp: AppDate}},
		{"delayed bit set", Consigne{Dest: 2, CodeTache: TaskCopyReport, Delayed: true, CodeApp: 0}},
		{"small context", Consigne{Dest: 3, CodeTache: TaskFile, CodeApp: AppID, CtxData: []byte{1, 2, 3}}},
		{"max context", Consigne{Dest: 4, CodeTache: TaskFile, CodeApp: AppCATP, CtxData: bytes.Repeat([]byte{0xAA}, ConsigneContextDataSize)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeConsigne(tc.c, 0)
			if int(encoded[0])%4 != 0 {
				t.Fatalf("length field %d is not a multiple of 4", encoded[0])
			}
			if len(encoded) < 12 {
				t.Fatalf("encoded length %d is below the minimum of 12", len(encoded))
			}
			if int(encoded[0]) != len(encoded)-1 {
				t.Fatalf("length field %d does not match len(encoded)-1 = %d", encoded[0], len(encoded)-1)
			}

			decoded, err := DecodeConsigne(encoded)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.Dest != tc.c.Dest {
				t.Errorf("dest = %d, want %d", decoded.Dest, tc.c.Dest)
			}
			if decoded.CodeTache != tc.c.CodeTache {
				t.Errorf("code_tache = %d, want %d", decoded.CodeTache, tc.c.CodeTache)
			}
			if decoded.Delayed != tc.c.Delayed {
				t.Errorf("delayed = %v, want %v", decoded.Delayed, tc.c.Delayed)
			}
			if decoded.CodeApp != tc.c.CodeApp {
				t.Errorf("code_app = %d, want %d", decoded.CodeApp, tc.c.CodeApp)
			}
			got := decoded.CtxData[:len(tc.c.CtxData)]
			if !bytes.Equal(got, tc.c.CtxData) {
				t.Errorf("ctx_data = %v, want %v", got, tc.c.CtxData)
			}
			for _, b := range decoded.CtxData[len(tc.c.CtxData):] {
				if b != 0 {
					t.Errorf("expected zero padding in trailing ctx_data, got %v", decoded.CtxData)
					break
				}
			}
		})
	}
}

func TestEncodeConsigneMinSize(t *testing.T) {
	c := Consigne{Dest: 1, CodeTache: TaskFile, CodeApp: AppID}
	encoded := EncodeConsigne(c, ConsigneSize+1)
	if len(encoded) != ConsigneSize+1 {
		t.Fatalf("len(encoded) = %d, want %d", len(encoded), ConsigneSize+1)
	}
}

func TestDecodeConsigneTooShort(t *testing.T) {
	_, err := DecodeConsigne(make([]byte, 5))
	if err == nil {
		t.Fatal("expected error decoding a too-short buffer")
	}
}

func TestDecodeConsigneFixedFrame(t *testing.T) {
	buf := make([]byte, ConsigneSize)
	buf[1] = 7        // dest
	buf[2] = TaskFile | delayedBit
	buf[3] = AppCLEAR
	decoded, err := DecodeConsigne(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.CtxData) != ConsigneContextDataSize {
		t.Fatalf("ctx_data len = %d, want %d", len(decoded.CtxData), ConsigneContextDataSize)
	}
	if !decoded.Delayed {
		t.Fatal("expected delayed flag to be set")
	}
	if decoded.CodeTache != TaskFile {
		t.Fatalf("code_tache = %d, want %d", decoded.CodeTache, TaskFile)
	}
}
