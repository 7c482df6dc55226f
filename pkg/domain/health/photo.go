package health

import "time"

// Photo is an image file listed from the food photo folder, with the raw
// metadata the capture time is resolved from.
type Photo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	MimeType    string            `json:"mime_type"`
	CreatedTime time.Time         `json:"created_time"`
	MediaTime   string            `json:"media_time,omitempty"` // imageMediaMetadata.time, camera local time
	Metadata    map[string]string `json:"metadata,omitempty"`   // file properties and appProperties
}

// TimestampSource names where a photo's capture time was read from.
type TimestampSource string

const (
	SourceMediaMetadata TimestampSource = "media_metadata"
	SourceEXIF          TimestampSource = "exif"
	SourceMetadataField TimestampSource = "metadata_field"
	SourceFilename      TimestampSource = "filename"
	SourceCreatedTime   TimestampSource = "created_time"
)

// CaptureTime is a resolved photo timestamp in the user's local zone.
type CaptureTime struct {
	Time   time.Time       `json:"time"`
	Source TimestampSource `json:"source"`
}

// LowConfidence is true when only the upload time was available.
func (c CaptureTime) LowConfidence() bool {
	return c.Source == SourceCreatedTime
}
