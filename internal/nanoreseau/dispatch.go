package nanoreseau

import "log/slog"

// Handler executes one task/application code combination against an
// inbound consigne (§4.8).
type Handler func(srv *Server, c Consigne, stationID byte)

// taskKey identifies a handler slot by (task code, application code).
type taskKey struct {
	task byte
	app  byte
}

// Dispatcher maps (task_code, app_code) pairs to handlers (§4.8). A
// two-level nested map in the original is flattened here to a single
// pair-keyed map — equivalent semantics, simpler Go.
type Dispatcher struct {
	handlers map[taskKey]Handler
}

// NewDispatcher builds the dispatcher with every implemented handler
// registered (§4.9). Unregistered (task, app) pairs fall through to
// disconnect, matching the original's explicit `None` table entries for
// unimplemented tasks.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[taskKey]Handler)}

	d.Register(TaskInit, 0, handleInitCall)

	d.Register(TaskFile, AppCHBIN, handleCHBIN)
	d.Register(TaskFile, AppCLEAR, handleCLEAR)
	d.Register(TaskFile, AppSYSINF, handleSYSINF)
	d.Register(TaskFile, AppCATP, handleCATP)
	d.Register(TaskFile, AppCATS, handleCATS)
	d.Register(TaskFile, AppDate, handleDATE)
	d.Register(TaskFile, AppDSKF, handleDSKF)
	d.Register(TaskFile, AppID, handleID)
	d.Register(TaskFile, AppOUVFL, handleOUVFL)
	d.Register(TaskFile, AppLIRFI, handleLIRFI)
	d.Register(TaskFile, AppFERFI, handleFERFI)

	return d
}

// Register installs a handler for the given (task, app) pair.
func (d *Dispatcher) Register(task, app byte, h Handler) {
	d.handlers[taskKey{task, app}] = h
}

// Dispatch looks up and invokes the handler for c, disconnecting the peer
// on any unknown task/app combination (§4.8).
func (d *Dispatcher) Dispatch(srv *Server, c Consigne, stationID byte) {
	h, ok := d.handlers[taskKey{c.CodeTache, c.CodeApp}]
	if !ok {
		slog.Error("no handler for task/app combination, disconnecting peer",
			"station", stationID, "task", c.CodeTache, "app", c.CodeApp)
		srv.disconnectStation(stationID)
		return
	}
	h(srv, c, stationID)
}
