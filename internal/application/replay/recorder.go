package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Version is written into every recording.
const Version = "1.0"

// Recorder collects frame input for replay
type Recorder struct {
	data      ReplayData
	recording bool
	frame     int
}

// NewRecorder creates a recorder for a session starting at startNode
func NewRecorder(startNode string) *Recorder {
	return &Recorder{
		data: ReplayData{
			Version:   Version,
			StartNode: startNode,
			StartTime: time.Now().Format(time.RFC3339),
			Events:    make([]EventRecord, 0, 64),
		},
		recording: true,
	}
}

// RecordFrame records one frame's input and advances the frame counter
func (r *Recorder) RecordFrame(f Frame) {
	if !r.recording {
		return
	}
	if !f.Empty() {
		r.data.Events = append(r.data.Events, EventRecord{
			F: r.frame,
			E: append([]string(nil), f.Events...),
			B: f.Back,
		})
	}
	r.frame++
	r.data.Frames = r.frame
}

// Save writes the replay data to a file
func (r *Recorder) Save(filename string) error {
	if r.data.Frames == 0 {
		return fmt.Errorf("no frames to save")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r.data); err != nil {
		return fmt.Errorf("failed to encode replay: %w", err)
	}

	return nil
}

// Stop stops recording
func (r *Recorder) Stop() {
	r.recording = false
}

// IsRecording returns whether recording is active
func (r *Recorder) IsRecording() bool {
	return r.recording
}

// FrameCount returns the number of recorded frames
func (r *Recorder) FrameCount() int {
	return r.data.Frames
}

// GetData returns the replay data
func (r *Recorder) GetData() ReplayData {
	return r.data
}

// GenerateFilename creates a filename based on current time
func GenerateFilename() string {
	return fmt.Sprintf("replay_%s.json", time.Now().Format("20060102_150405"))
}
