// Package platform declares the contracts the runtime expects from its host
// environment. The runtime never implements these; an embedder supplies
// them, and nothing in the core packages depends on their internals.
package platform

// WindowHandle identifies a host window.
type WindowHandle int64

// WindowEvent is one input or lifecycle event delivered by the host.
type WindowEvent struct {
	// Window is the originating window.
	Window WindowHandle

	// Kind names the event (close, resize, key, pointer).
	Kind string

	// X, Y carry event coordinates where applicable.
	X, Y int

	// Key carries the key code for key events.
	Key int
}

// WindowManager creates and manages host windows.
type WindowManager interface {
	// CreateWindow opens a window with the given title and size.
	CreateWindow(title string, width, height int) (WindowHandle, error)

	// DestroyWindow closes the window.
	DestroyWindow(w WindowHandle) error

	// ResizeWindow changes the window's client size.
	ResizeWindow(w WindowHandle, width, height int) error

	// SetTitle changes the window's title.
	SetTitle(w WindowHandle, title string) error

	// PollEvents returns all events queued since the previous poll.
	PollEvents() ([]WindowEvent, error)
}

// ProcessStatus is the terminal state of a spawned process.
type ProcessStatus struct {
	// PID is the host process identifier.
	PID int

	// ExitCode is the process exit status.
	ExitCode int
}

// ProcessRunner spawns and controls host processes.
type ProcessRunner interface {
	// Spawn starts a process and returns its identifier.
	Spawn(command string, args []string) (int, error)

	// Kill forcibly terminates the process.
	Kill(pid int) error

	// Wait blocks until the process exits and returns its status.
	Wait(pid int) (ProcessStatus, error)
}

// FileStore reads and writes whole files on the host.
type FileStore interface {
	// ReadFile returns the full contents of the named file.
	ReadFile(name string) ([]byte, error)

	// WriteFile replaces the named file with data.
	WriteFile(name string, data []byte) error
}

// SystemInfo describes the host system.
type SystemInfo struct {
	// OSName is the operating system name.
	OSName string

	// OSVersion is the operating system release string.
	OSVersion string

	// CPUCount is the number of logical processors.
	CPUCount int

	// MemoryBytes is the total physical memory.
	MemoryBytes uint64

	// Hostname is the host's network name.
	Hostname string
}

// SystemInfoProvider reports static facts about the host system.
type SystemInfoProvider interface {
	// Info returns a snapshot of the host description.
	Info() (SystemInfo, error)
}
