package capsule

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	dexerrors "github.com/notedex/notedex/internal/errors"
)

// signature is the fixed 8-byte PNG file signature.
var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Record types used by the container. The index payload travels in tEXt
// records; IHDR and IDAT carry a 1x1 grayscale stub so the file stays a
// well-formed image.
const (
	typeIHDR = "IHDR"
	typeIDAT = "IDAT"
	typeIEND = "IEND"
	typeText = "tEXt"
)

// record is one framed container record.
type record struct {
	typ  string
	data []byte
}

// writeRecord appends a framed record: 4-byte big-endian data length, 4-byte
// type, data, and CRC-32 computed over type and data.
func writeRecord(w *bytes.Buffer, typ string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	w.Write(length[:])
	w.WriteString(typ)
	w.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}

// readRecords walks framed records until the IEND terminator.
// Truncated framing is a format error; a stored CRC that does not match the
// recomputed one is an integrity error.
func readRecords(data []byte) ([]record, error) {
	var records []record
	off := 0
	for {
		if off+8 > len(data) {
			return nil, dexerrors.New(dexerrors.ErrCodeCapsuleFormat,
				"truncated record header", nil)
		}
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		body := off + 8
		if body+length+4 > len(data) {
			return nil, dexerrors.New(dexerrors.ErrCodeCapsuleFormat,
				fmt.Sprintf("truncated %q record", typ), nil)
		}
		payload := data[body : body+length]

		crc := crc32.NewIEEE()
		crc.Write(data[off+4 : off+8])
		crc.Write(payload)
		stored := binary.BigEndian.Uint32(data[body+length : body+length+4])
		if crc.Sum32() != stored {
			return nil, dexerrors.New(dexerrors.ErrCodeCapsuleIntegrity,
				fmt.Sprintf("crc mismatch in %q record", typ), nil)
		}

		records = append(records, record{typ: typ, data: payload})
		if typ == typeIEND {
			return records, nil
		}
		off = body + length + 4
	}
}

// textData builds a tEXt record body: keyword, NUL separator, text.
func textData(keyword, text string) []byte {
	data := make([]byte, 0, len(keyword)+1+len(text))
	data = append(data, keyword...)
	data = append(data, 0)
	data = append(data, text...)
	return data
}

// parseText splits a tEXt record body at the NUL separator.
func parseText(data []byte) (keyword, text string, ok bool) {
	sep := bytes.IndexByte(data, 0)
	if sep < 0 {
		return "", "", false
	}
	return string(data[:sep]), string(data[sep+1:]), true
}

// ihdrData describes the stub image: 1x1, 8-bit grayscale, no interlace.
func ihdrData() []byte {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], 1) // width
	binary.BigEndian.PutUint32(data[4:8], 1) // height
	data[8] = 8                              // bit depth
	// color type, compression, filter, interlace all zero
	return data
}

// idatData is the zlib-compressed stub scanline: one filter byte, one pixel.
func idatData() []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte{0x00, 0x00})
	zw.Close()
	return buf.Bytes()
}
