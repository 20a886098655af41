// Package pipelinetest строит тестовые изображения с EXIF.
package pipelinetest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand"
)

const (
	tagOrientation       = 0x0112
	tagDateTime          = 0x0132
	tagExifIFD           = 0x8769
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004
	tagGPSIFD            = 0x8825
	tagGPSLatitudeRef    = 0x0001
	tagGPSLatitude       = 0x0002
	tagGPSLongitudeRef   = 0x0003
	tagGPSLongitude      = 0x0004

	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5

	// exifTIFFStart смещение TIFF в файле после WithExif: SOI, маркер APP1,
	// длина сегмента и "Exif\0\0".
	exifTIFFStart = 2 + 2 + 2 + 6
)

type Exif struct {
	DateTimeOriginal  string
	DateTimeDigitized string
	DateTime          string
	Orientation       int
	GPS               *GPS
}

// GPS координаты в градусах, южная широта и западная долгота отрицательны.
type GPS struct {
	Latitude  float64
	Longitude float64
}

// Noise детерминированное шумное изображение. Шум делает размер JPEG
// чувствительным к качеству.
func Noise(w, h int, seed int64) *image.RGBA {
	rnd := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rnd.Intn(256)),
				G: uint8(rnd.Intn(256)),
				B: uint8(rnd.Intn(256)),
				A: 255,
			})
		}
	}

	return img
}

// JPEG кодирует шумное изображение w x h и при наличии тегов вставляет APP1 с EXIF.
func JPEG(w, h int, x *Exif) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Noise(w, h, int64(w*h)), &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}

	data := buf.Bytes()
	if x == nil {
		return data
	}

	return WithExif(data, *x)
}

// PNG с полупрозрачными пикселями.
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: uint8((x + y) % 256)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}

	return buf.Bytes()
}

// PNGHeader только сигнатура и IHDR 8-битного серого изображения w x h.
// image.DecodeConfig его читает, пиксельных данных нет.
func PNGHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // глубина
	ihdr[9] = 0 // оттенки серого

	chunk := append([]byte("IHDR"), ihdr...)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))

	return buf.Bytes()
}

// WithExif вставляет сегмент APP1 сразу после SOI.
func WithExif(jpegData []byte, x Exif) []byte {
	payload := append([]byte("Exif\x00\x00"), buildTIFF(x)...)

	seg := make([]byte, 4, 4+len(payload))
	seg[0], seg[1] = 0xFF, 0xE1
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(jpegData)+len(seg))
	out = append(out, jpegData[:2]...)
	out = append(out, seg...)
	out = append(out, jpegData[2:]...)

	return out
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) entry {
	b := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

// degreesEntry кодирует градусы тремя RATIONAL: градусы, минуты, секунды с точностью 0.01.
func degreesEntry(tag uint16, value float64) entry {
	value = math.Abs(value)
	deg := math.Floor(value)
	minutes := math.Floor((value - deg) * 60)
	seconds := math.Round(((value-deg)*60 - minutes) * 60 * 100)

	b := make([]byte, 24)
	for i, v := range [][2]uint32{{uint32(deg), 1}, {uint32(minutes), 1}, {uint32(seconds), 100}} {
		binary.LittleEndian.PutUint32(b[i*8:], v[0])
		binary.LittleEndian.PutUint32(b[i*8+4:], v[1])
	}

	return entry{tag: tag, typ: typeRational, count: 3, data: b}
}

func gpsEntries(g GPS) []entry {
	latRef, lonRef := "N", "E"
	if g.Latitude < 0 {
		latRef = "S"
	}
	if g.Longitude < 0 {
		lonRef = "W"
	}

	return []entry{
		asciiEntry(tagGPSLatitudeRef, latRef),
		degreesEntry(tagGPSLatitude, g.Latitude),
		asciiEntry(tagGPSLongitudeRef, lonRef),
		degreesEntry(tagGPSLongitude, g.Longitude),
	}
}

func buildTIFF(x Exif) []byte {
	var ifd0, sub, gps []entry

	if x.Orientation != 0 {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint16(b, uint16(x.Orientation))
		ifd0 = append(ifd0, entry{tag: tagOrientation, typ: typeShort, count: 1, data: b})
	}
	if x.DateTime != "" {
		ifd0 = append(ifd0, asciiEntry(tagDateTime, x.DateTime))
	}
	if x.DateTimeOriginal != "" {
		sub = append(sub, asciiEntry(tagDateTimeOriginal, x.DateTimeOriginal))
	}
	if x.DateTimeDigitized != "" {
		sub = append(sub, asciiEntry(tagDateTimeDigitized, x.DateTimeDigitized))
	}

	if x.GPS != nil {
		gps = gpsEntries(*x.GPS)
	}

	const headerSize = 8
	ifd0Size := ifdSize(len(ifd0) + boolInt(len(sub) > 0) + boolInt(len(gps) > 0))
	subOffset := headerSize + ifd0Size + dataSize(ifd0)
	gpsOffset := subOffset
	if len(sub) > 0 {
		gpsOffset += ifdSize(len(sub)) + dataSize(sub)
	}

	if len(sub) > 0 {
		ifd0 = append(ifd0, pointerEntry(tagExifIFD, subOffset))
	}
	if len(gps) > 0 {
		ifd0 = append(ifd0, pointerEntry(tagGPSIFD, gpsOffset))
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(headerSize))

	writeIFD(&buf, ifd0, headerSize)
	if len(sub) > 0 {
		writeIFD(&buf, sub, subOffset)
	}
	if len(gps) > 0 {
		writeIFD(&buf, gps, gpsOffset)
	}

	return buf.Bytes()
}

func pointerEntry(tag uint16, offset int) entry {
	ptr := make([]byte, 4)
	binary.LittleEndian.PutUint32(ptr, uint32(offset))

	return entry{tag: tag, typ: typeLong, count: 1, data: ptr}
}

// SetFirstTagCount перезаписывает счетчик значений первого тега IFD0 в JPEG,
// собранном WithExif. Возвращает копию.
func SetFirstTagCount(data []byte, count uint32) []byte {
	out := append([]byte(nil), data...)

	// заголовок TIFF, число тегов IFD0, затем id и тип первого тега
	pos := exifTIFFStart + 8 + 2 + 4
	binary.LittleEndian.PutUint32(out[pos:], count)

	return out
}

// SetNextIFD перезаписывает смещение следующего каталога после IFD0.
func SetNextIFD(data []byte, offset uint32) []byte {
	out := append([]byte(nil), data...)

	ifd0 := exifTIFFStart + 8
	n := int(binary.LittleEndian.Uint16(out[ifd0:]))
	binary.LittleEndian.PutUint32(out[ifd0+2+12*n:], offset)

	return out
}

func ifdSize(n int) int {
	return 2 + 12*n + 4
}

func dataSize(entries []entry) int {
	n := 0
	for _, e := range entries {
		if len(e.data) > 4 {
			n += len(e.data) + len(e.data)%2
		}
	}

	return n
}

// writeIFD пишет каталог по смещению offset, длинные значения идут сразу за ним.
func writeIFD(buf *bytes.Buffer, entries []entry, offset int) {
	valueOffset := offset + ifdSize(len(entries))

	_ = binary.Write(buf, binary.LittleEndian, uint16(len(entries)))

	var values bytes.Buffer
	for _, e := range entries {
		_ = binary.Write(buf, binary.LittleEndian, e.tag)
		_ = binary.Write(buf, binary.LittleEndian, e.typ)
		_ = binary.Write(buf, binary.LittleEndian, e.count)

		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			buf.Write(inline)
			continue
		}

		_ = binary.Write(buf, binary.LittleEndian, uint32(valueOffset+values.Len()))
		values.Write(e.data)
		if len(e.data)%2 == 1 {
			values.WriteByte(0)
		}
	}

	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.Write(values.Bytes())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
