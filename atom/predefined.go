package atom

// Atoms the marshalling layer emits on its own.
var (
	OK        = New("ok")
	Error     = New("error")
	Nil       = New("nil")
	True      = New("true")
	False     = New("false")
	Struct    = New("__struct__")
	Exception = New("__exception__")
	Message   = New("message")
)
