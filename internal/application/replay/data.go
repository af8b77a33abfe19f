package replay

// EventRecord is one recorded frame with input. Frames without input are
// not stored.
type EventRecord struct {
	F int      `json:"f"`           // Frame number
	E []string `json:"e,omitempty"` // Flow events
	B bool     `json:"b,omitempty"` // Back pressed
}

// ReplayData contains all data needed to replay a session
type ReplayData struct {
	Version   string        `json:"version"`
	StartNode string        `json:"startNode"`
	StartTime string        `json:"startTime"`
	Frames    int           `json:"frames"`
	Events    []EventRecord `json:"events"`
}

// Frame is the input of a single frame.
type Frame struct {
	Events []string
	Back   bool
}

// Empty reports whether the frame carries no input.
func (f Frame) Empty() bool {
	return len(f.Events) == 0 && !f.Back
}
