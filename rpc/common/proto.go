package common

import "fmt"

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// Command names as they appear in the first argument of a request.
// Names are case-sensitive.
const (
	CmdGet  = "get"
	CmdSet  = "set"
	CmdDel  = "del"
	CmdKeys = "keys"
	CmdHas  = "has"
)

// MaxArgs is the maximum number of arguments in a request
const MaxArgs = 1024

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status is the first field of every response
type Status uint32

const (
	StatusOK  Status = 0 // command executed, data holds the result
	StatusErr Status = 1 // command failed, data holds the message
	StatusNX  Status = 2 // key not found
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusErr:
		return "ERR"
	case StatusNX:
		return "NX"
	default:
		return fmt.Sprintf("Status(%d)", uint32(s))
	}
}

// --------------------------------------------------------------------------
// Message Structures
// --------------------------------------------------------------------------

// Request is a command with its arguments, Args[0] is the command name
type Request struct {
	Args [][]byte
}

// Command returns the command name or an empty string for an empty request
func (r *Request) Command() string {
	if len(r.Args) == 0 {
		return ""
	}
	return string(r.Args[0])
}

// Response is the result of a single request
type Response struct {
	Status Status
	Data   []byte
}

// Err returns the error message of an ERR response as an error
func (r *Response) Err() error {
	if r.Status != StatusErr {
		return nil
	}
	return fmt.Errorf("server error: %s", r.Data)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request from a command and its arguments
func NewRequest(cmd string, args ...[]byte) *Request {
	all := make([][]byte, 0, len(args)+1)
	all = append(all, []byte(cmd))
	return &Request{Args: append(all, args...)}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Request {
	return NewRequest(CmdGet, []byte(key))
}

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Request {
	return NewRequest(CmdSet, []byte(key), value)
}

// NewDelRequest creates a new Del request
func NewDelRequest(key string) *Request {
	return NewRequest(CmdDel, []byte(key))
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Request {
	return NewRequest(CmdHas, []byte(key))
}

// NewKeysRequest creates a new Keys request
func NewKeysRequest() *Request {
	return NewRequest(CmdKeys)
}

// NewOKResponse creates a successful response carrying data (may be nil)
func NewOKResponse(data []byte) *Response {
	return &Response{Status: StatusOK, Data: data}
}

// NewNXResponse creates a not-found response
func NewNXResponse() *Response {
	return &Response{Status: StatusNX}
}

// NewErrResponse creates an error response with the given message
func NewErrResponse(msg string) *Response {
	return &Response{Status: StatusErr, Data: []byte(msg)}
}
