package packet

// TextConfiguration opens a text-entry session. The same schema is used
// on the system channel (SystemTextConfiguration) and the title channel
// (TitleTextConfiguration); the message type records which.
type TextConfiguration struct {
	messageType       MessageType
	TextSessionID     uint64
	TextBufferVersion uint32
	TextOptions       TextOption
	InputScope        TextInputScope
	MaxTextLength     uint32
	Locale            string
	Prompt            string
}

// NewSystemTextConfiguration creates a configuration for the system text
// channel.
func NewSystemTextConfiguration() *TextConfiguration {
	return &TextConfiguration{messageType: MessageTypeSystemTextConfiguration}
}

// Type implements Payload.
func (p *TextConfiguration) Type() MessageType {
	if p.messageType == 0 {
		return MessageTypeSystemTextConfiguration
	}
	return p.messageType
}

// EncodeTo implements Payload.
func (p *TextConfiguration) EncodeTo(w *Writer) {
	w.WriteUint64(p.TextSessionID)
	w.WriteUint32(p.TextBufferVersion)
	w.WriteUint32(uint32(p.TextOptions))
	w.WriteUint32(uint32(p.InputScope))
	w.WriteUint32(p.MaxTextLength)
	w.WriteSGString(p.Locale)
	w.WriteSGString(p.Prompt)
}

// DecodeFrom implements Payload.
func (p *TextConfiguration) DecodeFrom(r *Reader) {
	p.TextSessionID = r.ReadUint64()
	p.TextBufferVersion = r.ReadUint32()
	p.TextOptions = TextOption(r.ReadUint32())
	p.InputScope = TextInputScope(r.ReadUint32())
	p.MaxTextLength = r.ReadUint32()
	p.Locale = r.ReadSGString()
	p.Prompt = r.ReadSGString()
}

// SystemTextInputDelta is one edit of a delta-encoded text update. Never
// observed populated in captures; kept for wire completeness.
type SystemTextInputDelta struct {
	Offset        uint32
	DeleteCount   uint32
	InsertContent string
}

// SystemTextInput submits or reports the text buffer of a session.
type SystemTextInput struct {
	TextSessionID      uint32
	BaseVersion        uint32
	SubmittedVersion   uint32
	TotalTextByteLen   uint32
	SelectionStart     int32
	SelectionLength    int32
	Flags              uint16
	TextChunkByteStart uint32
	TextChunk          string

	// Delta is optional trailing data; encoded when non-nil or when the
	// decoded input carried a delta block (even an empty one).
	Delta    []SystemTextInputDelta
	hasDelta bool
}

// Type implements Payload.
func (p *SystemTextInput) Type() MessageType { return MessageTypeSystemTextInput }

// EncodeTo implements Payload.
func (p *SystemTextInput) EncodeTo(w *Writer) {
	w.WriteUint32(p.TextSessionID)
	w.WriteUint32(p.BaseVersion)
	w.WriteUint32(p.SubmittedVersion)
	w.WriteUint32(p.TotalTextByteLen)
	w.WriteInt32(p.SelectionStart)
	w.WriteInt32(p.SelectionLength)
	w.WriteUint16(p.Flags)
	w.WriteUint32(p.TextChunkByteStart)
	w.WriteSGString(p.TextChunk)
	if p.hasDelta || p.Delta != nil {
		w.WriteUint16(uint16(len(p.Delta)))
		for _, d := range p.Delta {
			w.WriteUint32(d.Offset)
			w.WriteUint32(d.DeleteCount)
			w.WriteSGString(d.InsertContent)
		}
	}
}

// DecodeFrom implements Payload.
func (p *SystemTextInput) DecodeFrom(r *Reader) {
	p.TextSessionID = r.ReadUint32()
	p.BaseVersion = r.ReadUint32()
	p.SubmittedVersion = r.ReadUint32()
	p.TotalTextByteLen = r.ReadUint32()
	p.SelectionStart = r.ReadInt32()
	p.SelectionLength = r.ReadInt32()
	p.Flags = r.ReadUint16()
	p.TextChunkByteStart = r.ReadUint32()
	p.TextChunk = r.ReadSGString()
	if r.Err() == nil && r.Remaining() > 0 {
		p.hasDelta = true
		count := int(r.ReadUint16())
		for i := 0; i < count && r.Err() == nil; i++ {
			p.Delta = append(p.Delta, SystemTextInputDelta{
				Offset:        r.ReadUint32(),
				DeleteCount:   r.ReadUint32(),
				InsertContent: r.ReadSGString(),
			})
		}
	}
}

// SystemTextAck acknowledges a text version on a session.
type SystemTextAck struct {
	TextSessionID  uint32
	TextVersionAck uint32
}

// Type implements Payload.
func (p *SystemTextAck) Type() MessageType { return MessageTypeSystemTextAck }

// EncodeTo implements Payload.
func (p *SystemTextAck) EncodeTo(w *Writer) {
	w.WriteUint32(p.TextSessionID)
	w.WriteUint32(p.TextVersionAck)
}

// DecodeFrom implements Payload.
func (p *SystemTextAck) DecodeFrom(r *Reader) {
	p.TextSessionID = r.ReadUint32()
	p.TextVersionAck = r.ReadUint32()
}

// SystemTextDone closes a text session, accepting or cancelling the
// entered text.
type SystemTextDone struct {
	TextSessionID uint32
	TextVersion   uint32
	Flags         uint32
	Result        TextResult
}

// Type implements Payload.
func (p *SystemTextDone) Type() MessageType { return MessageTypeSystemTextDone }

// EncodeTo implements Payload.
func (p *SystemTextDone) EncodeTo(w *Writer) {
	w.WriteUint32(p.TextSessionID)
	w.WriteUint32(p.TextVersion)
	w.WriteUint32(p.Flags)
	w.WriteUint32(uint32(p.Result))
}

// DecodeFrom implements Payload.
func (p *SystemTextDone) DecodeFrom(r *Reader) {
	p.TextSessionID = r.ReadUint32()
	p.TextVersion = r.ReadUint32()
	p.Flags = r.ReadUint32()
	p.Result = TextResult(r.ReadUint32())
}

// TitleTextInput reports completed text entry on a title session.
type TitleTextInput struct {
	TextSessionID     uint64
	TextBufferVersion uint32
	Result            uint16
	Text              string
}

// Type implements Payload.
func (p *TitleTextInput) Type() MessageType { return MessageTypeTitleTextInput }

// EncodeTo implements Payload.
func (p *TitleTextInput) EncodeTo(w *Writer) {
	w.WriteUint64(p.TextSessionID)
	w.WriteUint32(p.TextBufferVersion)
	w.WriteUint16(p.Result)
	w.WriteSGString(p.Text)
}

// DecodeFrom implements Payload.
func (p *TitleTextInput) DecodeFrom(r *Reader) {
	p.TextSessionID = r.ReadUint64()
	p.TextBufferVersion = r.ReadUint32()
	p.Result = r.ReadUint16()
	p.Text = r.ReadSGString()
}

// TitleTextSelection reports the selection range on a title session.
type TitleTextSelection struct {
	TextSessionID     uint64
	TextBufferVersion uint32
	Start             uint32
	Length            uint32
}

// Type implements Payload.
func (p *TitleTextSelection) Type() MessageType { return MessageTypeTitleTextSelection }

// EncodeTo implements Payload.
func (p *TitleTextSelection) EncodeTo(w *Writer) {
	w.WriteUint64(p.TextSessionID)
	w.WriteUint32(p.TextBufferVersion)
	w.WriteUint32(p.Start)
	w.WriteUint32(p.Length)
}

// DecodeFrom implements Payload.
func (p *TitleTextSelection) DecodeFrom(r *Reader) {
	p.TextSessionID = r.ReadUint64()
	p.TextBufferVersion = r.ReadUint32()
	p.Start = r.ReadUint32()
	p.Length = r.ReadUint32()
}
