package meals

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/healthsync/server/pkg/domain/health"
)

const exifLayout = "2006:01:02 15:04:05"

// metadataKeys are the file properties checked for a capture time, in order.
var metadataKeys = []string{"captureTime", "dateTime", "datetime", "date"}

// metadataLayouts are tried in order; layouts without a zone are read in the local zone.
var metadataLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	exifLayout,
	"2006-01-02 15:04:05",
}

// filenamePatterns capture year, month, day, hour, minute, second.
// The first one also covers camera names like IMG_20240723_142530.jpg.
var filenamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})_(\d{2})-(\d{2})-(\d{2})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})`),
}

// ContentFunc returns a photo's bytes; it is only called when the cheaper sources fail.
type ContentFunc func(ctx context.Context) ([]byte, error)

// ResolveCaptureTime walks the capture time sources from most to least trustworthy:
// Drive media metadata, EXIF, file properties, filename, upload time.
// ok is false when none of them yields a time.
func ResolveCaptureTime(ctx context.Context, p health.Photo, content ContentFunc, loc *time.Location) (health.CaptureTime, bool) {
	if loc == nil {
		loc = time.Local
	}

	if t, ok := parseFlexible(p.MediaTime, loc); ok {
		return health.CaptureTime{Time: t, Source: health.SourceMediaMetadata}, true
	}

	if content != nil {
		if data, err := content(ctx); err == nil {
			if t, ok := exifTime(data, loc); ok {
				return health.CaptureTime{Time: t, Source: health.SourceEXIF}, true
			}
		}
	}

	for _, key := range metadataKeys {
		if t, ok := parseFlexible(p.Metadata[key], loc); ok {
			return health.CaptureTime{Time: t, Source: health.SourceMetadataField}, true
		}
	}

	if t, ok := timeFromFilename(p.Name, loc); ok {
		return health.CaptureTime{Time: t, Source: health.SourceFilename}, true
	}

	if !p.CreatedTime.IsZero() {
		return health.CaptureTime{Time: p.CreatedTime.In(loc), Source: health.SourceCreatedTime}, true
	}
	return health.CaptureTime{}, false
}

func parseFlexible(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range metadataLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.In(loc), true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// exifTime reads DateTimeOriginal, then DateTime, then DateTimeDigitized.
func exifTime(data []byte, loc *time.Location) (time.Time, bool) {
	if len(data) == 0 {
		return time.Time{}, false
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime, exif.DateTimeDigitized} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		raw = strings.TrimRight(strings.TrimSpace(raw), "\x00")
		if t, err := time.ParseInLocation(exifLayout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func timeFromFilename(name string, loc *time.Location) (time.Time, bool) {
	for _, re := range filenamePatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		var parts [6]int
		for i := range parts {
			parts[i], _ = strconv.Atoi(m[i+1])
		}
		t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, loc)
		// time.Date normalizes out-of-range fields; a digit run that is not a real date must not match.
		if t.Year() != parts[0] || int(t.Month()) != parts[1] || t.Day() != parts[2] ||
			t.Hour() != parts[3] || t.Minute() != parts[4] || t.Second() != parts[5] {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
