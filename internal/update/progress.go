package update

// Frontend event names.
const (
	EventAvailable    = "update-available"
	EventNotAvailable = "update-not-available"
	EventProgress     = "download-progress"
	EventDownloaded   = "update-downloaded"
	EventError        = "update-error"
)

// Progress reports download progress.
type Progress struct {
	Version       string  `json:"version"`
	Stage         string  `json:"stage"`
	BytesReceived int64   `json:"bytesReceived"`
	BytesTotal    int64   `json:"bytesTotal"`
	Percent       float64 `json:"percent"`
}

// OnProgress is a callback for progress updates.
type OnProgress func(Progress)

// Emitter delivers an event to the frontend.
type Emitter func(event string, payload any)

func calcPercent(received, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(received) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}
