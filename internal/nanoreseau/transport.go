package nanoreseau

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Bridge USB identity and endpoints (§6).
const (
	bridgeVendorID  = 0xBABA
	bridgeProductID = 0x0001

	endpointOut = 0x03
	endpointIn  = 0x83

	statusReplySize  = 1 + 1 + 1 + 60 // state, error, event, message
	consigneReplySize = 1 + ConsigneSize // peer id + consigne frame
)

// Bridge device state codes (§4.5).
const (
	StateIdle        = 0
	StateRdvInitCall = 1
	StateBusy        = 2
)

// Bridge event codes (§4.5).
const (
	EventNone     = 0
	EventError    = 1
	EventSelected = 2
	EventCmdDone  = 3
)

// Status is one status-poll reply from the bridge (§4.5).
type Status struct {
	State    byte
	Error    byte
	Event    byte
	ErrorMsg string
}

func (s Status) String() string {
	return fmt.Sprintf("state=%d error=%d event=%d msg=%q", s.State, s.Error, s.Event, s.ErrorMsg)
}

func (s Status) differsFrom(o Status) bool {
	return s.State != o.State || s.Error != o.Error
}

// BridgeTransport is what the dispatcher and its handlers need from the
// bridge (§4.5). *Transport is the real, gousb-backed implementation; tests
// substitute a fake so handlers can run without USB hardware attached.
type BridgeTransport interface {
	SendConsigne(c Consigne) error
	SendData(addr uint16, page byte, data []byte, peer byte) error
	Disconnect(peer byte) error
	WaitNewStatus(last Status) (Status, error)
	FetchConsigne() (Consigne, byte, error)
	Reset() error
	Close() error
}

// Transport is the bridge façade (§4.5): blocking status polling,
// consigne fetch/send, raw data bursts, and peer disconnect.
type Transport struct {
	ctx    *gousb.Context
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint

	pollInterval time.Duration
}

// OpenTransport detects and opens the Nanoréseau USB bridge.
func OpenTransport() (*Transport, error) {
	ctx := gousb.NewContext()

	device, err := ctx.OpenDeviceWithVIDPID(bridgeVendorID, bridgeProductID)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("opening bridge device: %w", err)
	}
	if device == nil {
		ctx.Close()
		return nil, fmt.Errorf("no bridge device found (VID:PID %#04x:%#04x)", bridgeVendorID, bridgeProductID)
	}

	config, err := device.Config(1)
	if err != nil {
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("setting bridge configuration: %w", err)
	}

	intf, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("claiming bridge interface: %w", err)
	}

	epOut, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("opening OUT endpoint: %w", err)
	}

	epIn, err := intf.InEndpoint(endpointIn)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, fmt.Errorf("opening IN endpoint: %w", err)
	}

	return &Transport{
		ctx:          ctx,
		device:       device,
		config:       config,
		intf:         intf,
		epOut:        epOut,
		epIn:         epIn,
		pollInterval: 2 * time.Millisecond,
	}, nil
}

// Close releases the bridge device and its USB context.
func (t *Transport) Close() error {
	if t.intf != nil {
		t.intf.Close()
	}
	if t.config != nil {
		t.config.Close()
	}
	if t.device != nil {
		t.device.Close()
	}
	if t.ctx != nil {
		t.ctx.Close()
	}
	return nil
}

// Reset issues the state-reset control transfer (§6).
func (t *Transport) Reset() error {
	_, err := t.device.Control(0x41, 1, 0, 0, nil)
	if err != nil {
		return fmt.Errorf("resetting bridge: %w", err)
	}
	return nil
}

func (t *Transport) write(b []byte) error {
	if _, err := t.epOut.Write(b); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	return nil
}

func (t *Transport) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := t.epIn.Read(buf[read:])
		if err != nil {
			return nil, fmt.Errorf("bridge read: %w", err)
		}
		if m == 0 {
			return nil, fmt.Errorf("bridge read: zero-length transfer")
		}
		read += m
	}
	return buf, nil
}

// PollStatus issues a single get_status request and returns the bridge's
// reply (§4.5).
func (t *Transport) PollStatus() (Status, error) {
	if err := t.write(EncodeGetStatusCommand()); err != nil {
		return Status{}, err
	}
	buf, err := t.read(statusReplySize)
	if err != nil {
		return Status{}, err
	}
	msgEnd := 3
	for msgEnd < len(buf) && buf[msgEnd] != 0 {
		msgEnd++
	}
	return Status{
		State:    buf[0],
		Error:    buf[1],
		Event:    buf[2],
		ErrorMsg: string(buf[3:msgEnd]),
	}, nil
}

// WaitNewStatus polls at a fixed interval until the state/error changes or
// an event is reported (§4.5).
func (t *Transport) WaitNewStatus(last Status) (Status, error) {
	for {
		s, err := t.PollStatus()
		if err != nil {
			return Status{}, err
		}
		if s.differsFrom(last) || s.Event != EventNone {
			return s, nil
		}
		time.Sleep(t.pollInterval)
	}
}

// FetchConsigne reads the pending consigne and its originating peer id
// (§4.5).
func (t *Transport) FetchConsigne() (Consigne, byte, error) {
	if err := t.write(EncodeGetConsigneCommand()); err != nil {
		return Consigne{}, 0, err
	}
	buf, err := t.read(consigneReplySize)
	if err != nil {
		return Consigne{}, 0, err
	}
	peer := buf[0]
	c, err := DecodeConsigne(buf[1:])
	if err != nil {
		return Consigne{}, 0, fmt.Errorf("decoding fetched consigne: %w", err)
	}
	return c, peer, nil
}

// waitForCompletion polls until the bridge reports CMD_DONE or ERROR after
// an outbound write (§4.5).
func (t *Transport) waitForCompletion() error {
	var last Status
	for {
		s, err := t.PollStatus()
		if err != nil {
			return err
		}
		if s.Event == EventCmdDone {
			return nil
		}
		if s.Event == EventError {
			return fmt.Errorf("bridge reported error %d: %s", s.Error, s.ErrorMsg)
		}
		if s.differsFrom(last) {
			last = s
		}
		time.Sleep(t.pollInterval)
	}
}

// SendConsigne encodes and writes c, then waits for completion (§4.5).
func (t *Transport) SendConsigne(c Consigne) error {
	if err := t.write(EncodePutConsigneCommand(EncodeConsigne(c, ConsigneSize))); err != nil {
		return err
	}
	return t.waitForCompletion()
}

// SendData retargets the slave's receive pointer then bursts data (§4.5,
// §4.9 "send_data").
func (t *Transport) SendData(addr uint16, page byte, data []byte, peer byte) error {
	retarget := Consigne{
		Dest:      peer,
		CodeTache: TaskInit,
		MsgAddr:   addr,
		Page:      page,
		MsgLen:    uint16(len(data)),
	}
	if err := t.SendConsigne(retarget); err != nil {
		return fmt.Errorf("retargeting receive pointer: %w", err)
	}
	if err := t.write(EncodePutDataCommand(uint16(len(data)))); err != nil {
		return err
	}
	if err := t.write(data); err != nil {
		return err
	}
	return t.waitForCompletion()
}

// Disconnect emits a disconnect command without waiting for completion
// (§4.5).
func (t *Transport) Disconnect(peer byte) error {
	return t.write(EncodeDisconnectCommand(peer))
}
