package queue

const (
	TypeAudioProcess = "audio:process"
)

// AudioProcessPayload points the worker at an uploaded recording and its metadata.
// File names are relative to the unprocessed media directory.
type AudioProcessPayload struct {
	FileName     string `json:"file_name"`
	MetadataName string `json:"metadata_name"`
	ThreadID     string `json:"thread_id"`
	WsSID        string `json:"ws_sid"`
}
