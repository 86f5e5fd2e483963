// Package capsule encodes a search index into a portable PNG container and
// decodes it back.
//
// A capsule is a well-formed 1x1 PNG whose tEXt records carry the real
// payload: the JSON-serialized index, zlib-compressed, split into fixed-size
// segments, base64-encoded, and keyed by zero-padded ordinals ("rag-000",
// "rag-001", ...). A metadata record declares the segment count so decoders
// can detect missing or surplus segments. Every record is covered by the
// standard PNG CRC-32, which makes single-byte corruption detectable.
//
// Decode failures are classified: ErrFormat for byte streams that are not
// capsules, ErrIntegrity for records whose CRC does not match, and
// ErrCorrupt for well-framed containers with inconsistent contents.
package capsule

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	dexerrors "github.com/notedex/notedex/internal/errors"
	"github.com/notedex/notedex/internal/index"
)

const (
	// SegmentSize is the compressed payload segment size in bytes.
	SegmentSize = 60 * 1024

	// metaKeyword names the tEXt record holding segment bookkeeping.
	metaKeyword = "rag-meta"

	// segmentPrefix starts every segment record keyword.
	segmentPrefix = "rag-"

	// segmentKeyFormat renders zero-padded segment ordinals ("rag-000").
	segmentKeyFormat = "rag-%03d"
)

// Sentinel errors for decode failure classification. Concrete errors carry
// more detail but match these with errors.Is.
var (
	// ErrFormat reports input that is not a capsule: wrong signature or
	// broken record framing.
	ErrFormat = dexerrors.New(dexerrors.ErrCodeCapsuleFormat, "not a capsule", nil)

	// ErrIntegrity reports a record whose CRC-32 check failed.
	ErrIntegrity = dexerrors.New(dexerrors.ErrCodeCapsuleIntegrity, "capsule integrity check failed", nil)

	// ErrCorrupt reports a structurally sound container whose contents are
	// inconsistent or undecodable.
	ErrCorrupt = dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt, "capsule contents corrupt", nil)
)

// metadata is the JSON body of the rag-meta record.
type metadata struct {
	Parts int `json:"parts"`
}

// Report summarizes a capsule's container-level structure.
type Report struct {
	// RecordCount is the total number of framed records, IEND included.
	RecordCount int

	// Parts is the segment count declared by the metadata record.
	Parts int

	// PayloadBytes is the compressed payload length across all segments.
	PayloadBytes int

	// CapsuleBytes is the total container size.
	CapsuleBytes int
}

// Encode serializes the index into capsule bytes.
//
// The index is JSON-marshaled, zlib-compressed, and split into
// ceil(L/SegmentSize) segments; every segment except the last is exactly
// SegmentSize bytes.
func Encode(idx *index.Index) ([]byte, error) {
	payload, err := json.Marshal(idx)
	if err != nil {
		return nil, dexerrors.Wrap(dexerrors.ErrCodeInternal, err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return nil, dexerrors.Wrap(dexerrors.ErrCodeInternal, err)
	}
	if err := zw.Close(); err != nil {
		return nil, dexerrors.Wrap(dexerrors.ErrCodeInternal, err)
	}

	segments := splitSegments(compressed.Bytes(), SegmentSize)

	var out bytes.Buffer
	out.Write(signature)
	writeRecord(&out, typeIHDR, ihdrData())
	writeRecord(&out, typeIDAT, idatData())

	meta, err := json.Marshal(metadata{Parts: len(segments)})
	if err != nil {
		return nil, dexerrors.Wrap(dexerrors.ErrCodeInternal, err)
	}
	writeRecord(&out, typeText, textData(metaKeyword, string(meta)))

	for i, seg := range segments {
		key := fmt.Sprintf(segmentKeyFormat, i)
		writeRecord(&out, typeText, textData(key, base64.StdEncoding.EncodeToString(seg)))
	}
	writeRecord(&out, typeIEND, nil)

	return out.Bytes(), nil
}

// Decode parses capsule bytes back into an index.
// The decoded index satisfies Decode(Encode(idx)) == idx.
func Decode(data []byte) (*index.Index, error) {
	segments, _, err := parseContainer(data)
	if err != nil {
		return nil, err
	}

	compressed := bytes.Join(segments, nil)
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			"payload is not zlib data", err)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			"payload inflation failed", err)
	}
	if err := zr.Close(); err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			"payload inflation failed", err)
	}

	var idx index.Index
	if err := json.Unmarshal(payload, &idx); err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			"index payload is not valid JSON", err)
	}
	if err := idx.Validate(); err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			fmt.Sprintf("decoded index invalid: %v", err), err)
	}
	return &idx, nil
}

// Inspect verifies container framing and segment bookkeeping without
// inflating the payload, and reports structure-level statistics.
func Inspect(data []byte) (*Report, error) {
	segments, records, err := parseContainer(data)
	if err != nil {
		return nil, err
	}
	payloadBytes := 0
	for _, seg := range segments {
		payloadBytes += len(seg)
	}
	return &Report{
		RecordCount:  records,
		Parts:        len(segments),
		PayloadBytes: payloadBytes,
		CapsuleBytes: len(data),
	}, nil
}

// WriteFile encodes the index and writes the capsule via a temp file and
// rename so readers never observe a partial capsule.
func WriteFile(path string, idx *index.Index) error {
	data, err := Encode(idx)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return dexerrors.Wrap(dexerrors.ErrCodeFilePermission, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return dexerrors.Wrap(dexerrors.ErrCodeFilePermission, err)
	}
	return nil
}

// ReadFile reads and decodes a capsule from disk.
func ReadFile(path string) (*index.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot read capsule %s", path), err)
	}
	return Decode(data)
}

// parseContainer validates the signature, walks records, and reassembles the
// ordered segment list. It returns the segments and total record count.
func parseContainer(data []byte) ([][]byte, int, error) {
	if len(data) < len(signature) || !bytes.Equal(data[:len(signature)], signature) {
		return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleFormat,
			"missing png signature", nil)
	}

	records, err := readRecords(data[len(signature):])
	if err != nil {
		return nil, 0, err
	}

	texts := make(map[string]string)
	for _, rec := range records {
		if rec.typ != typeText {
			continue
		}
		keyword, text, ok := parseText(rec.data)
		if !ok {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				"text record without keyword separator", nil)
		}
		if _, dup := texts[keyword]; dup {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				fmt.Sprintf("duplicate record keyword %q", keyword), nil)
		}
		texts[keyword] = text
	}

	metaText, ok := texts[metaKeyword]
	if !ok {
		return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			"metadata record missing", nil)
	}
	var meta metadata
	if err := json.Unmarshal([]byte(metaText), &meta); err != nil {
		return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			"metadata record unparsable", err)
	}
	if meta.Parts < 1 {
		return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
			fmt.Sprintf("metadata declares %d segments", meta.Parts), nil)
	}

	segments := make([][]byte, 0, meta.Parts)
	for i := 0; i < meta.Parts; i++ {
		key := fmt.Sprintf(segmentKeyFormat, i)
		encoded, ok := texts[key]
		if !ok {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				fmt.Sprintf("segment %q missing", key), nil)
		}
		delete(texts, key)
		seg, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				fmt.Sprintf("segment %q is not valid base64", key), err)
		}
		last := i == meta.Parts-1
		if !last && len(seg) != SegmentSize {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				fmt.Sprintf("segment %q has %d bytes (want %d)", key, len(seg), SegmentSize), nil)
		}
		if last && (len(seg) == 0 || len(seg) > SegmentSize) {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				fmt.Sprintf("final segment %q has %d bytes", key, len(seg)), nil)
		}
		segments = append(segments, seg)
	}

	// Any leftover rag-NNN record contradicts the declared count.
	for keyword := range texts {
		if keyword == metaKeyword {
			continue
		}
		if strings.HasPrefix(keyword, segmentPrefix) {
			return nil, 0, dexerrors.New(dexerrors.ErrCodeCapsuleCorrupt,
				fmt.Sprintf("segment %q exceeds declared count %d", keyword, meta.Parts), nil)
		}
	}

	return segments, len(records), nil
}

// splitSegments cuts data into consecutive slices of at most size bytes.
func splitSegments(data []byte, size int) [][]byte {
	var segments [][]byte
	for len(data) > size {
		segments = append(segments, data[:size])
		data = data[size:]
	}
	if len(data) > 0 {
		segments = append(segments, data)
	}
	return segments
}
