package packet

// MediaMetadata is one name/value pair of MediaState metadata.
type MediaMetadata struct {
	Name  string
	Value string
}

// MediaState is the console's report of the active media session.
type MediaState struct {
	TitleID         uint32
	AumID           string
	AssetID         string
	MediaType       MediaType
	SoundLevel      SoundLevel
	EnabledCommands MediaControlCommand
	PlaybackStatus  MediaPlaybackStatus
	Rate            float32
	Position        uint64
	MediaStart      uint64
	MediaEnd        uint64
	MinSeek         uint64
	MaxSeek         uint64
	Metadata        []MediaMetadata
}

// Type implements Payload.
func (p *MediaState) Type() MessageType { return MessageTypeMediaState }

// EncodeTo implements Payload.
func (p *MediaState) EncodeTo(w *Writer) {
	w.WriteUint32(p.TitleID)
	w.WriteSGString(p.AumID)
	w.WriteSGString(p.AssetID)
	w.WriteUint16(uint16(p.MediaType))
	w.WriteUint16(uint16(p.SoundLevel))
	w.WriteUint32(uint32(p.EnabledCommands))
	w.WriteUint16(uint16(p.PlaybackStatus))
	w.WriteFloat32(p.Rate)
	w.WriteUint64(p.Position)
	w.WriteUint64(p.MediaStart)
	w.WriteUint64(p.MediaEnd)
	w.WriteUint64(p.MinSeek)
	w.WriteUint64(p.MaxSeek)
	w.WriteUint16(uint16(len(p.Metadata)))
	for _, m := range p.Metadata {
		w.WriteSGString(m.Name)
		w.WriteSGString(m.Value)
	}
}

// DecodeFrom implements Payload.
func (p *MediaState) DecodeFrom(r *Reader) {
	p.TitleID = r.ReadUint32()
	p.AumID = r.ReadSGString()
	p.AssetID = r.ReadSGString()
	p.MediaType = MediaType(r.ReadUint16())
	p.SoundLevel = SoundLevel(r.ReadUint16())
	p.EnabledCommands = MediaControlCommand(r.ReadUint32())
	p.PlaybackStatus = MediaPlaybackStatus(r.ReadUint16())
	p.Rate = r.ReadFloat32()
	p.Position = r.ReadUint64()
	p.MediaStart = r.ReadUint64()
	p.MediaEnd = r.ReadUint64()
	p.MinSeek = r.ReadUint64()
	p.MaxSeek = r.ReadUint64()
	count := int(r.ReadUint16())
	for i := 0; i < count && r.Err() == nil; i++ {
		p.Metadata = append(p.Metadata, MediaMetadata{
			Name:  r.ReadSGString(),
			Value: r.ReadSGString(),
		})
	}
}

// MediaCommand issues a transport command against a title. SeekPosition
// is on the wire only when Command is Seek.
type MediaCommand struct {
	RequestID    uint64
	TitleID      uint32
	Command      MediaControlCommand
	SeekPosition uint64
}

// Type implements Payload.
func (p *MediaCommand) Type() MessageType { return MessageTypeMediaCommand }

// EncodeTo implements Payload.
func (p *MediaCommand) EncodeTo(w *Writer) {
	w.WriteUint64(p.RequestID)
	w.WriteUint32(p.TitleID)
	w.WriteUint32(uint32(p.Command))
	if p.Command == MediaControlSeek {
		w.WriteUint64(p.SeekPosition)
	}
}

// DecodeFrom implements Payload.
func (p *MediaCommand) DecodeFrom(r *Reader) {
	p.RequestID = r.ReadUint64()
	p.TitleID = r.ReadUint32()
	p.Command = MediaControlCommand(r.ReadUint32())
	if p.Command == MediaControlSeek {
		p.SeekPosition = r.ReadUint64()
	}
}

// MediaCommandResult answers a MediaCommand.
type MediaCommandResult struct {
	RequestID uint64
	Result    uint32
}

// Type implements Payload.
func (p *MediaCommandResult) Type() MessageType { return MessageTypeMediaCommandResult }

// EncodeTo implements Payload.
func (p *MediaCommandResult) EncodeTo(w *Writer) {
	w.WriteUint64(p.RequestID)
	w.WriteUint32(p.Result)
}

// DecodeFrom implements Payload.
func (p *MediaCommandResult) DecodeFrom(r *Reader) {
	p.RequestID = r.ReadUint64()
	p.Result = r.ReadUint32()
}

// MediaControllerRemoved reports that a title stopped exposing media
// control.
type MediaControllerRemoved struct {
	TitleID uint32
}

// Type implements Payload.
func (p *MediaControllerRemoved) Type() MessageType { return MessageTypeMediaControllerRemoved }

// EncodeTo implements Payload.
func (p *MediaControllerRemoved) EncodeTo(w *Writer) { w.WriteUint32(p.TitleID) }

// DecodeFrom implements Payload.
func (p *MediaControllerRemoved) DecodeFrom(r *Reader) { p.TitleID = r.ReadUint32() }
