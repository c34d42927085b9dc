package builtin

// Stable builtin ids. Grouped by concern; within a group, new builtins
// are appended rather than inserted, so existing ids never shift.
const (
	TimeMonotonicNanos ID = iota
	TimeUnixNanos

	EnvGet
	EnvSet

	RandomInt63
	RandomFloat64

	StringToUpper
	StringToLower

	CPUCoreCount

	// The remaining ids are ABI-reserved but not implemented: a compiled
	// module that references one gets a Error("not implemented") result
	// rather than losing its numeric id assignment if a future table
	// fills the slot in.
	FileOpen
	FileRead
	FileWrite
	FileClose
	SocketConnect
	SocketSend
	SocketRecv
	FFICall

	idCount
)
