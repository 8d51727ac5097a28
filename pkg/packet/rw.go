package packet

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Writer serializes payload fields in wire order. All integers are
// big-endian. Writes never fail; the buffer grows as needed.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the accumulated wire bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteUint16 writes a big-endian 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteUint32 writes a big-endian 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteInt32 writes a big-endian signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 writes a big-endian 64-bit integer.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteFloat32 writes a big-endian IEEE-754 float.
func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteBytes writes raw bytes with no length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteSGString writes a SmartGlass string: 16-bit length including the
// terminator, the UTF-8 bytes, one NUL.
func (w *Writer) WriteSGString(s string) {
	w.WriteUint16(uint16(len(s) + 1))
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// WriteUUID writes a UUID as its 16 raw big-endian bytes.
func (w *Writer) WriteUUID(u uuid.UUID) {
	w.buf.Write(u[:])
}

// WriteUUIDString writes a UUID in upper-case canonical text form as an
// SGString, as used by the discovery response.
func (w *Writer) WriteUUIDString(u uuid.UUID) {
	w.WriteSGString(strings.ToUpper(u.String()))
}

// WritePrefixedBytes writes a 16-bit length prefix followed by the bytes.
func (w *Writer) WritePrefixedBytes(b []byte) {
	w.WriteUint16(uint16(len(b)))
	w.buf.Write(b)
}

// Reader decodes payload fields in wire order. It carries a sticky error:
// after the first failure every subsequent read returns a zero value, so
// decoders can read a full schema and check Err once.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the current decode position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of undecoded bytes.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.data) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = ErrShortPacket
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadUint16 reads a big-endian 16-bit integer.
func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// ReadUint32 reads a big-endian 32-bit integer.
func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// ReadInt32 reads a big-endian signed 32-bit integer.
func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

// ReadUint64 reads a big-endian 64-bit integer.
func (r *Reader) ReadUint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// ReadFloat32 reads a big-endian IEEE-754 float.
func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

// ReadBytes reads n raw bytes, copied out of the underlying buffer.
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadSGString reads a SmartGlass string and strips its NUL terminator.
func (r *Reader) ReadSGString() string {
	n := int(r.ReadUint16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	if n == 0 || b[n-1] != 0 {
		r.err = ErrShortPacket
		return ""
	}
	return string(b[:n-1])
}

// ReadUUID reads 16 raw big-endian bytes as a UUID.
func (r *Reader) ReadUUID() uuid.UUID {
	b := r.take(16)
	if b == nil {
		return uuid.UUID{}
	}
	var u uuid.UUID
	copy(u[:], b)
	return u
}

// ReadUUIDString reads a canonical-text UUID carried as an SGString.
func (r *Reader) ReadUUIDString() uuid.UUID {
	s := r.ReadSGString()
	if r.err != nil {
		return uuid.UUID{}
	}
	u, err := uuid.Parse(s)
	if err != nil {
		r.err = ErrShortPacket
		return uuid.UUID{}
	}
	return u
}

// ReadPrefixedBytes reads a 16-bit length prefix and that many bytes.
func (r *Reader) ReadPrefixedBytes() []byte {
	n := int(r.ReadUint16())
	return r.ReadBytes(n)
}
