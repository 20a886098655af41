package pipeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

const (
	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xA005

	typeLong = 4

	// maxIFDs больше каталогов в настоящих файлах не встречается.
	maxIFDs = 16
)

var errMalformedExif = errors.New("malformed exif")

// tiffTypeSize размер одного значения каждого типа TIFF.
var tiffTypeSize = map[uint16]uint64{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1,
	7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// metadata поля EXIF, нужные конвейеру. Пустые строки означают отсутствие тега.
type metadata struct {
	Original    string
	Digitized   string
	Modified    string
	Orientation int
	Latitude    float64
	Longitude   float64
	HasGPS      bool
}

// readMetadata разбирает EXIF. Отсутствие или порча EXIF не ошибка.
// goexif получает только TIFF, прошедший checkTIFF: на поврежденных счетчиках
// тегов он пытается выделить гигабайты памяти.
func readMetadata(data []byte) (meta metadata) {
	raw, ok := exifPayload(data)
	if !ok || checkTIFF(raw) != nil {
		return meta
	}

	// goexif паникует на тегах с меньшим числом значений, чем ожидает
	defer func() {
		if recover() != nil {
			meta = metadata{}
		}
	}()

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil || x == nil {
		return meta
	}

	meta.Original = tagString(x, exif.DateTimeOriginal)
	meta.Digitized = tagString(x, exif.DateTimeDigitized)
	meta.Modified = tagString(x, exif.DateTime)

	if orient, ok := tagToInt(x, exif.Orientation); ok {
		meta.Orientation = orient
	}

	if lat, lon, err := x.LatLong(); err == nil {
		meta.Latitude = lat
		meta.Longitude = lon
		meta.HasGPS = true
	}

	return meta
}

// exifPayload возвращает TIFF из первого сегмента APP1 "Exif" в JPEG.
func exifPayload(data []byte) ([]byte, bool) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, false
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return nil, false
		}

		marker := data[pos+1]
		switch {
		case marker == 0xFF:
			pos++
			continue
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8):
			pos += 2
			continue
		case marker == 0xDA || marker == 0xD9:
			return nil, false
		}

		size := int(binary.BigEndian.Uint16(data[pos+2:]))
		if size < 2 || pos+2+size > len(data) {
			return nil, false
		}

		segment := data[pos+4 : pos+2+size]
		if marker == 0xE1 && bytes.HasPrefix(segment, []byte("Exif\x00\x00")) {
			return segment[6:], true
		}

		pos += 2 + size
	}

	return nil, false
}

// checkTIFF проверяет, что каждый каталог и значение тега лежат внутри
// сегмента, а цепочка каталогов конечна.
func checkTIFF(b []byte) error {
	if len(b) < 8 {
		return errMalformedExif
	}

	var order binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return errMalformedExif
	}

	if order.Uint16(b[2:]) != 42 {
		return errMalformedExif
	}

	c := &tiffChecker{b: b, order: order, seen: make(map[uint32]bool)}

	offset := order.Uint32(b[4:])
	for offset != 0 {
		next, err := c.dir(offset)
		if err != nil {
			return err
		}
		offset = next
	}

	return nil
}

type tiffChecker struct {
	b     []byte
	order binary.ByteOrder
	seen  map[uint32]bool
}

// dir проверяет каталог по смещению offset и вложенные каталоги EXIF, GPS и
// Interop. Возвращает смещение следующего каталога цепочки.
func (c *tiffChecker) dir(offset uint32) (uint32, error) {
	if c.seen[offset] || len(c.seen) >= maxIFDs {
		return 0, errMalformedExif
	}
	c.seen[offset] = true

	size := uint64(len(c.b))
	start := uint64(offset)
	if start+2 > size {
		return 0, errMalformedExif
	}

	n := uint64(c.order.Uint16(c.b[start:]))
	end := start + 2 + 12*n + 4
	if n > 0x7FFF || end > size {
		return 0, errMalformedExif
	}

	for i := uint64(0); i < n; i++ {
		entry := c.b[start+2+12*i:]

		tag := c.order.Uint16(entry)
		typ := c.order.Uint16(entry[2:])
		count := c.order.Uint32(entry[4:])
		value := c.order.Uint32(entry[8:])

		unit, ok := tiffTypeSize[typ]
		if !ok || count == 0 {
			return 0, errMalformedExif
		}

		if length := unit * uint64(count); length > 4 && uint64(value)+length > size {
			return 0, errMalformedExif
		}

		switch tag {
		case tagExifIFD, tagGPSIFD, tagInteropIFD:
			if typ != typeLong || count != 1 {
				return 0, errMalformedExif
			}
			if _, err := c.dir(value); err != nil {
				return 0, err
			}
		}
	}

	return c.order.Uint32(c.b[end-4:]), nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil || tag == nil {
		return ""
	}

	s, err := tag.StringVal()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func tagToInt(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil || tag == nil {
		return 0, false
	}

	if i, err := tag.Int(0); err == nil {
		return i, true
	}

	if num, den, err := tag.Rat2(0); err == nil && den != 0 {
		return int(num / den), true
	}

	return 0, false
}

// orientationToDegrees переводит EXIF Orientation в поворот по часовой стрелке.
// Зеркальные варианты сводятся к ближайшему повороту.
func orientationToDegrees(orientation int) int {
	switch orientation {
	case 3, 4:
		return 180
	case 5, 8:
		return 270
	case 6, 7:
		return 90
	default:
		return 0
	}
}
