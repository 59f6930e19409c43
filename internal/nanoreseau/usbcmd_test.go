package nanoreseau

import (
	"bytes"
	"testing"
)

func TestEncodeUSBCommands(t *testing.T) {
	if got := EncodeGetStatusCommand(); !bytes.Equal(got, []byte{CmdGetStatus}) {
		t.Errorf("get_status = %v", got)
	}
	if got := EncodeGetConsigneCommand(); !bytes.Equal(got, []byte{CmdGetConsigne}) {
		t.Errorf("get_consigne = %v", got)
	}
	if got := EncodePutConsigneCommand([]byte{1, 2, 3}); !bytes.Equal(got, []byte{CmdPutConsigne, 1, 2, 3}) {
		t.Errorf("put_consigne = %v", got)
	}
	if got := EncodeGetDataCommand(0x0102); !bytes.Equal(got, []byte{CmdGetData, 0x02, 0x01}) {
		t.Errorf("get_data = %v, want little-endian length", got)
	}
	if got := EncodePutDataCommand(0x0304); !bytes.Equal(got, []byte{CmdPutData, 0x04, 0x03}) {
		t.Errorf("put_data = %v, want little-endian length", got)
	}
	if got := EncodeDisconnectCommand(9); !bytes.Equal(got, []byte{CmdDisconnect, 9}) {
		t.Errorf("disconnect = %v", got)
	}
}
