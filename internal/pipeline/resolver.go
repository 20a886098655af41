package pipeline

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"frames/internal/domain/models"

	"github.com/zsefvlol/timezonemapper"
)

const exifLayout = "2006-01-02 15:04:05"

var (
	exifDatePrefix = regexp.MustCompile(`^(\d{4}):(\d{2}):(\d{2})`)
	digitRun       = regexp.MustCompile(`\d+`)
)

// Resolver определяет время съемки фотографии. Никогда не возвращает ошибку:
// цепочка EXIF -> имя файла -> время файла всегда дает результат.
type Resolver struct {
	log *slog.Logger
}

func NewResolver(log *slog.Logger) *Resolver {
	return &Resolver{log: log}
}

// Resolve возвращает время съемки файла. data содержимое файла,
// receivedAt время получения запроса на случай, если клиент не передал время файла.
func (r *Resolver) Resolve(file models.UploadedFile, data []byte, receivedAt time.Time) models.CaptureTime {
	const op = "pipeline.Resolver.Resolve"

	log := r.log.With(
		slog.String("op", op),
		slog.String("filename", file.Filename),
	)

	meta := readMetadata(data)
	loc := meta.location()

	candidates := []struct {
		value  string
		source models.TakenAtSource
	}{
		{meta.Original, models.TakenAtExifOriginal},
		{meta.Digitized, models.TakenAtExifDigitized},
		{meta.Modified, models.TakenAtExifModified},
	}

	for _, c := range candidates {
		if c.value == "" {
			continue
		}

		t, ok := parseExifTime(c.value, loc)
		if !ok {
			log.Debug("skipping malformed exif date", slog.String("source", string(c.source)), slog.String("value", c.value))
			continue
		}

		return models.CaptureTime{Time: t, Source: c.source}
	}

	if t, ok := DateFromFilename(file.Filename); ok {
		return models.CaptureTime{Time: t, Source: models.TakenAtFilename}
	}

	fallback := file.ModTime
	if fallback.IsZero() {
		fallback = receivedAt
	}
	if fallback.IsZero() {
		fallback = time.Now()
	}

	log.Debug("no capture time in metadata or filename, using file time")

	return models.CaptureTime{Time: fallback.UTC(), Source: models.TakenAtUpload}
}

func (m metadata) location() *time.Location {
	if !m.HasGPS {
		return time.UTC
	}

	name := timezonemapper.LatLngToTimezoneString(m.Latitude, m.Longitude)
	if name == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}

	return loc
}

// parseExifTime разбирает "YYYY:MM:DD HH:MM:SS". Двоеточия в дате
// заменяются на дефисы до разбора.
func parseExifTime(value string, loc *time.Location) (time.Time, bool) {
	normalized := exifDatePrefix.ReplaceAllString(strings.TrimSpace(value), "$1-$2-$3")
	if len(normalized) > len(exifLayout) {
		normalized = normalized[:len(exifLayout)]
	}

	t, err := time.ParseInLocation(exifLayout, normalized, loc)
	if err != nil || !plausible(t) {
		return time.Time{}, false
	}

	return t.UTC(), true
}

// DateFromFilename ищет в имени файла дату YYYYMMDD, за которой может идти
// время HHMMSS (слитно или через один из "_", "-", "T", " "). До трех цифр
// миллисекунд после времени, как у PXL_20230615_143000123, отбрасываются.
func DateFromFilename(filename string) (time.Time, bool) {
	base := filepath.Base(filename)
	runs := digitRun.FindAllStringIndex(base, -1)

	for i, run := range runs {
		digits := base[run[0]:run[1]]

		var datePart, clockPart string
		switch n := len(digits); {
		case n == 8:
			datePart = digits
			if i+1 < len(runs) {
				next := runs[i+1]
				gap := base[run[1]:next[0]]
				if isClockRun(next[1]-next[0]) && len(gap) == 1 && strings.ContainsAny(gap, "_-T ") {
					clockPart = base[next[0] : next[0]+6]
				}
			}
		case isClockRun(n - 8):
			datePart, clockPart = digits[:8], digits[8:14]
		default:
			continue
		}

		if t, ok := parseDigits(datePart, clockPart); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// isClockRun HHMMSS и необязательные миллисекунды.
func isClockRun(n int) bool {
	return n >= 6 && n <= 9
}

func parseDigits(datePart, clockPart string) (time.Time, bool) {
	year, _ := strconv.Atoi(datePart[0:4])
	month, _ := strconv.Atoi(datePart[4:6])
	day, _ := strconv.Atoi(datePart[6:8])

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day || !plausible(date) {
		return time.Time{}, false
	}

	if clockPart == "" {
		return date, true
	}

	hour, _ := strconv.Atoi(clockPart[0:2])
	minute, _ := strconv.Atoi(clockPart[2:4])
	second, _ := strconv.Atoi(clockPart[4:6])
	if hour > 23 || minute > 59 || second > 59 {
		return date, true
	}

	return date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second), true
}

func plausible(t time.Time) bool {
	return t.Year() >= 1900 && t.Year() <= 2100
}
