package nanoreseau

import "encoding/binary"

// USB command tags (§4.2): 1 tag byte followed by a variable payload sent
// to the bridge MCU over the OUT endpoint.
const (
	CmdGetStatus   = 0 // no payload
	CmdGetConsigne = 1 // no payload
	CmdPutConsigne = 2 // payload = encoded consigne
	CmdGetData     = 3 // payload = u16 LE length
	CmdPutData     = 4 // payload = u16 LE length; data bytes follow in a second write
	CmdDisconnect  = 5 // payload = 1 peer-id byte
)

// EncodeUSBCommand frames tag and payload as the bridge expects: one tag
// byte followed by the payload verbatim.
func EncodeUSBCommand(tag byte, payload []byte) []byte {
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, tag)
	buf = append(buf, payload...)
	return buf
}

// EncodeGetStatusCommand builds the get_status frame: the tag byte alone,
// with no payload.
func EncodeGetStatusCommand() []byte {
	return EncodeUSBCommand(CmdGetStatus, nil)
}

// EncodeGetConsigneCommand builds the get_consigne frame: the tag byte
// alone, with no payload.
func EncodeGetConsigneCommand() []byte {
	return EncodeUSBCommand(CmdGetConsigne, nil)
}

// EncodePutConsigneCommand frames an already-encoded consigne for the
// put_consigne command.
func EncodePutConsigneCommand(encodedConsigne []byte) []byte {
	return EncodeUSBCommand(CmdPutConsigne, encodedConsigne)
}

// EncodeGetDataCommand frames a get_data request for n bytes.
func EncodeGetDataCommand(n uint16) []byte {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, n)
	return EncodeUSBCommand(CmdGetData, payload)
}

// EncodePutDataCommand frames a put_data announcement for n bytes. The
// actual data bytes are written to the OUT endpoint in a following,
// separate transfer.
func EncodePutDataCommand(n uint16) []byte {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, n)
	return EncodeUSBCommand(CmdPutData, payload)
}

// EncodeDisconnectCommand frames a disconnect request for the given peer.
func EncodeDisconnectCommand(peer byte) []byte {
	return EncodeUSBCommand(CmdDisconnect, []byte{peer})
}
