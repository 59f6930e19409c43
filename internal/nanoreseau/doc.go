/*
Package nanoreseau implements the host side of a Nanoréseau network
emulator: it plays the network "master" role for a fleet of vintage 8-bit
slave stations (TO7, MO5, TO7/70) connected through a USB bridge device,
serving boot, catalog, and file I/O requests over the wire protocol those
machines expect.

# Wire Protocol

A consigne is the fixed-shape command frame exchanged in both directions.
On the wire it is:

	length(1) dest(1) code_tache(1) code_app(1) msg_len(2) page(1) msg_addr(2) computer(1) application(1) ctx_data(≤51)

length is the byte count following the length field itself, rounded up to
a multiple of 4 (DecodeConsigne/EncodeConsigne, consigne.go). Bit 7 of
code_tache is the "delayed" flag: the bridge defers sending a delayed
consigne until its current transaction finishes, which is how a
compte-rendu reply is made to arrive only after an associated data burst
completes. code_tache selects a task (file I/O, code execution, a
compte-rendu reply, ...); for code_tache=9 ("file"), code_app further
selects the specific request (CATP, OUVFL, DATE, ...).

The bridge itself speaks a small tagged command set over its own two USB
bulk endpoints — get_status, get_consigne, put_consigne, get_data,
put_data, disconnect (usbcmd.go) — which Transport (transport.go) wraps
into blocking, higher-level operations: poll until something changes,
fetch the pending consigne, send one, burst raw data to a memory
address/page.

# Server Loop

Server.Run (server.go) is a single-threaded dispatch loop: wait for a
status change, and on a SELECTED event fetch the inbound consigne, mark
the originating station online, and hand it to the Dispatcher
(dispatch.go), which looks up a handler by (task, app) pair and disconnects
the peer if nothing is registered for it. Because exactly one consigne is
in flight at a time, StationTable and FileTable need no locking.

# On-disk Files

Application files live under <base_path>/<drive letter>/. Each is parsed
by ReadNRFile (nrfile.go): a fixed header (identifier, type, mode, length,
dates, ...) followed either by a binary record stream — address/page
qualified machine-code chunks terminated by an exec-address record — or
raw bytes for every other file type. NR3.DAT, the boot registry
(registry.go), maps 32-byte station signatures to the application file a
matching station should be booted into; ReadRegistry parses it once at
startup.

# File Locking

FileTable (filetable.go) is the multi-reader/single-writer lock manager
behind OUVFL and FERFI (its write and reservation locks are not reached
from any registered handler): a virtual path (drive + upper-cased
"NAME.EXT") maps to a FileMetaData tracking its reader set, writer, and
exclusive reservation holder, plus a stably-allocated logical file number
(the smallest unused value in 1..255) that later requests address the
open file by.
*/
package nanoreseau
