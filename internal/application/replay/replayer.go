package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Replayer plays recorded input back frame by frame
type Replayer struct {
	data  ReplayData
	frame int
	next  int
}

// NewReplayer creates a new replayer from replay data
func NewReplayer(data ReplayData) *Replayer {
	return &Replayer{data: data}
}

// LoadReplay loads replay data from a file
func LoadReplay(filename string) (*ReplayData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var data ReplayData
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode replay: %w", err)
	}

	return &data, nil
}

// Next returns the input of the current frame and advances. It reports false
// once every recorded frame has been played.
func (r *Replayer) Next() (Frame, bool) {
	if r.Done() {
		return Frame{}, false
	}

	var f Frame
	for r.next < len(r.data.Events) && r.data.Events[r.next].F <= r.frame {
		rec := r.data.Events[r.next]
		f.Events = append(f.Events, rec.E...)
		f.Back = f.Back || rec.B
		r.next++
	}
	r.frame++
	return f, true
}

// Done reports whether playback is finished
func (r *Replayer) Done() bool {
	return r.frame >= r.data.Frames && r.next >= len(r.data.Events)
}

// CurrentFrame returns the current frame number
func (r *Replayer) CurrentFrame() int {
	return r.frame
}

// TotalFrames returns the total number of frames
func (r *Replayer) TotalFrames() int {
	return r.data.Frames
}

// StartNode returns the flow node the recording started at
func (r *Replayer) StartNode() string {
	return r.data.StartNode
}

// Reset resets the replayer to the beginning
func (r *Replayer) Reset() {
	r.frame = 0
	r.next = 0
}

// CreateTestReplayData creates replay data firing one event per listed frame
func CreateTestReplayData(frames int, events map[int]string) ReplayData {
	data := ReplayData{
		Version:   Version,
		StartNode: "test",
		StartTime: time.Now().Format(time.RFC3339),
		Frames:    frames,
	}

	for f := 0; f < frames; f++ {
		if e, ok := events[f]; ok {
			data.Events = append(data.Events, EventRecord{F: f, E: []string{e}})
		}
	}

	return data
}
