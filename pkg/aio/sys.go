package aio

// OpenMode selects how a file is opened.
type OpenMode int

const (
	ReadOnly OpenMode = 1 << iota
	WriteOnly
	ReadWrite
	Create
	Truncate
	Append
)

// Shutdown directions for stream sockets.
const (
	ShutdownRead = iota
	ShutdownWrite
	ShutdownBoth
)
