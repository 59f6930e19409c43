package nanoreseau

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Server protocol version and emulated OS type (§4.9 SYSINF).
const (
	ServerVersionMajor = 3
	ServerVersionMinor = 3
	ServerOSType        = 2 // emulate an MS-DOS server
)

// maxDrives bounds the drive-letter scan ('A'..) for SYSINF's disk mask and
// DSKF's drive-presence check.
const maxDrives = 16

// Server holds all server-owned state: the station table, the file lock
// manager, the loaded registry, and the transport façade (§2 control flow:
// J polls E, H dispatches into F/G/C/D via handlers).
type Server struct {
	basePath   string
	registry   *Registry
	stations   *StationTable
	files      *FileTable
	transport  BridgeTransport
	dispatcher *Dispatcher
}

// NewServer constructs a server rooted at basePath. Call Init before Run.
func NewServer(basePath string) *Server {
	return &Server{
		basePath:   basePath,
		stations:   NewStationTable(),
		files:      NewFileTable(),
		dispatcher: NewDispatcher(),
	}
}

// Init loads NR3.DAT and detects the bridge device (§4.10).
func (s *Server) Init() error {
	regPath, err := s.findRegistry()
	if err != nil {
		return err
	}
	slog.Info("loading registry", "path", regPath)
	reg, err := ReadRegistry(regPath)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}
	s.registry = reg

	slog.Info("detecting bridge device")
	t, err := OpenTransport()
	if err != nil {
		return fmt.Errorf("detecting bridge device: %w", err)
	}
	s.transport = t

	slog.Info("server initialized, ready to serve")
	return nil
}

// findRegistry locates NR3.DAT at <base>/A/NR3.DAT, falling back to
// <base>/B/NR3.DAT (§4.10, §6).
func (s *Server) findRegistry() (string, error) {
	aDir := filepath.Join(s.basePath, "A")
	if fi, err := os.Stat(aDir); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("drive A folder not found under %s", s.basePath)
	}
	aPath := filepath.Join(aDir, "NR3.DAT")
	if _, err := os.Stat(aPath); err == nil {
		return aPath, nil
	}

	bDir := filepath.Join(s.basePath, "B")
	if fi, err := os.Stat(bDir); err == nil && fi.IsDir() {
		bPath := filepath.Join(bDir, "NR3.DAT")
		if _, err := os.Stat(bPath); err == nil {
			return bPath, nil
		}
	}

	return "", fmt.Errorf("NR3.DAT not found under %s", s.basePath)
}

// Run is the server's main loop (§4.10, §5): block on status changes; on
// SELECTED, fetch the consigne, mark the station online, dispatch.
func (s *Server) Run() error {
	if s.registry == nil || s.transport == nil {
		return fmt.Errorf("server not initialized")
	}
	var last Status
	for {
		status, err := s.transport.WaitNewStatus(last)
		if err != nil {
			return fmt.Errorf("polling bridge status: %w", err)
		}
		last = status
		slog.Debug("new bridge status", "status", status.String())

		if status.Event != EventSelected {
			continue
		}

		c, stationID, err := s.transport.FetchConsigne()
		if err != nil {
			slog.Error("fetching consigne failed", "error", err)
			continue
		}
		slog.Info("received consigne", "station", stationID, "task", c.CodeTache, "app", c.CodeApp)

		s.stations.Touch(stationID, c.Computer)
		s.dispatcher.Dispatch(s, c, stationID)
	}
}

// Close releases the bridge device.
func (s *Server) Close() error {
	if s.transport == nil {
		return nil
	}
	return s.transport.Close()
}

// disconnectStation disconnects the peer at the transport layer and marks
// its station slot offline (§4.9 "disconnect_station").
func (s *Server) disconnectStation(stationID byte) {
	if err := s.transport.Disconnect(stationID); err != nil {
		slog.Error("disconnect failed", "station", stationID, "error", err)
	}
	s.stations.Disconnect(stationID)
}

// filePath resolves an application file descriptor to its path on disk.
func (s *Server) filePath(app ApplicationFile) string {
	return filepath.Join(s.basePath, string(app.Drive), app.FileName)
}

// availableDrives reports, for each drive letter from 'A', whether
// <base>/<letter> exists as a directory (§4.9 SYSINF/DSKF).
func (s *Server) availableDrives() [maxDrives]bool {
	var drives [maxDrives]bool
	for i := 0; i < maxDrives; i++ {
		letter := string(rune('A' + i))
		fi, err := os.Stat(filepath.Join(s.basePath, letter))
		drives[i] = err == nil && fi.IsDir()
	}
	return drives
}
