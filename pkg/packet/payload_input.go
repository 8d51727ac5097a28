package packet

// Gamepad is a controller input report.
type Gamepad struct {
	Timestamp        uint64
	Buttons          GamepadButton
	LeftTrigger      float32
	RightTrigger     float32
	LeftThumbstickX  float32
	LeftThumbstickY  float32
	RightThumbstickX float32
	RightThumbstickY float32
}

// Type implements Payload.
func (p *Gamepad) Type() MessageType { return MessageTypeGamepad }

// EncodeTo implements Payload.
func (p *Gamepad) EncodeTo(w *Writer) {
	w.WriteUint64(p.Timestamp)
	w.WriteUint16(uint16(p.Buttons))
	w.WriteFloat32(p.LeftTrigger)
	w.WriteFloat32(p.RightTrigger)
	w.WriteFloat32(p.LeftThumbstickX)
	w.WriteFloat32(p.LeftThumbstickY)
	w.WriteFloat32(p.RightThumbstickX)
	w.WriteFloat32(p.RightThumbstickY)
}

// DecodeFrom implements Payload.
func (p *Gamepad) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint64()
	p.Buttons = GamepadButton(r.ReadUint16())
	p.LeftTrigger = r.ReadFloat32()
	p.RightTrigger = r.ReadFloat32()
	p.LeftThumbstickX = r.ReadFloat32()
	p.LeftThumbstickY = r.ReadFloat32()
	p.RightThumbstickX = r.ReadFloat32()
	p.RightThumbstickY = r.ReadFloat32()
}

// Touchpoint is one contact of a touch report.
type Touchpoint struct {
	ID     uint32
	Action TouchAction
	X      uint32
	Y      uint32
}

// Touch reports touchscreen contacts, on the system or title surface
// depending on the message type.
type Touch struct {
	messageType MessageType
	Timestamp   uint32
	Touchpoints []Touchpoint
}

// NewSystemTouch creates a touch report for the system surface.
func NewSystemTouch(timestamp uint32, points []Touchpoint) *Touch {
	return &Touch{messageType: MessageTypeSystemTouch, Timestamp: timestamp, Touchpoints: points}
}

// NewTitleTouch creates a touch report for the title surface.
func NewTitleTouch(timestamp uint32, points []Touchpoint) *Touch {
	return &Touch{messageType: MessageTypeTitleTouch, Timestamp: timestamp, Touchpoints: points}
}

// Type implements Payload.
func (p *Touch) Type() MessageType {
	if p.messageType == 0 {
		return MessageTypeSystemTouch
	}
	return p.messageType
}

// EncodeTo implements Payload.
func (p *Touch) EncodeTo(w *Writer) {
	w.WriteUint32(p.Timestamp)
	w.WriteUint16(uint16(len(p.Touchpoints)))
	for _, tp := range p.Touchpoints {
		w.WriteUint32(tp.ID)
		w.WriteUint16(uint16(tp.Action))
		w.WriteUint32(tp.X)
		w.WriteUint32(tp.Y)
	}
}

// DecodeFrom implements Payload.
func (p *Touch) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint32()
	count := int(r.ReadUint16())
	for i := 0; i < count && r.Err() == nil; i++ {
		p.Touchpoints = append(p.Touchpoints, Touchpoint{
			ID:     r.ReadUint32(),
			Action: TouchAction(r.ReadUint16()),
			X:      r.ReadUint32(),
			Y:      r.ReadUint32(),
		})
	}
}

// Accelerometer is a linear-acceleration sensor report.
type Accelerometer struct {
	Timestamp     uint64
	AccelerationX float32
	AccelerationY float32
	AccelerationZ float32
}

// Type implements Payload.
func (p *Accelerometer) Type() MessageType { return MessageTypeAccelerometer }

// EncodeTo implements Payload.
func (p *Accelerometer) EncodeTo(w *Writer) {
	w.WriteUint64(p.Timestamp)
	w.WriteFloat32(p.AccelerationX)
	w.WriteFloat32(p.AccelerationY)
	w.WriteFloat32(p.AccelerationZ)
}

// DecodeFrom implements Payload.
func (p *Accelerometer) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint64()
	p.AccelerationX = r.ReadFloat32()
	p.AccelerationY = r.ReadFloat32()
	p.AccelerationZ = r.ReadFloat32()
}

// Gyrometer is an angular-velocity sensor report.
type Gyrometer struct {
	Timestamp        uint64
	AngularVelocityX float32
	AngularVelocityY float32
	AngularVelocityZ float32
}

// Type implements Payload.
func (p *Gyrometer) Type() MessageType { return MessageTypeGyrometer }

// EncodeTo implements Payload.
func (p *Gyrometer) EncodeTo(w *Writer) {
	w.WriteUint64(p.Timestamp)
	w.WriteFloat32(p.AngularVelocityX)
	w.WriteFloat32(p.AngularVelocityY)
	w.WriteFloat32(p.AngularVelocityZ)
}

// DecodeFrom implements Payload.
func (p *Gyrometer) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint64()
	p.AngularVelocityX = r.ReadFloat32()
	p.AngularVelocityY = r.ReadFloat32()
	p.AngularVelocityZ = r.ReadFloat32()
}

// Inclinometer is a pitch/roll/yaw sensor report.
type Inclinometer struct {
	Timestamp uint64
	Pitch     float32
	Roll      float32
	Yaw       float32
}

// Type implements Payload.
func (p *Inclinometer) Type() MessageType { return MessageTypeInclinometer }

// EncodeTo implements Payload.
func (p *Inclinometer) EncodeTo(w *Writer) {
	w.WriteUint64(p.Timestamp)
	w.WriteFloat32(p.Pitch)
	w.WriteFloat32(p.Roll)
	w.WriteFloat32(p.Yaw)
}

// DecodeFrom implements Payload.
func (p *Inclinometer) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint64()
	p.Pitch = r.ReadFloat32()
	p.Roll = r.ReadFloat32()
	p.Yaw = r.ReadFloat32()
}

// Compass is a heading sensor report.
type Compass struct {
	Timestamp     uint64
	MagneticNorth float32
	TrueNorth     float32
}

// Type implements Payload.
func (p *Compass) Type() MessageType { return MessageTypeCompass }

// EncodeTo implements Payload.
func (p *Compass) EncodeTo(w *Writer) {
	w.WriteUint64(p.Timestamp)
	w.WriteFloat32(p.MagneticNorth)
	w.WriteFloat32(p.TrueNorth)
}

// DecodeFrom implements Payload.
func (p *Compass) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint64()
	p.MagneticNorth = r.ReadFloat32()
	p.TrueNorth = r.ReadFloat32()
}

// Orientation is a rotation sensor report (quaternion form).
type Orientation struct {
	Timestamp           uint64
	RotationMatrixValue float32
	W                   float32
	X                   float32
	Y                   float32
	Z                   float32
}

// Type implements Payload.
func (p *Orientation) Type() MessageType { return MessageTypeOrientation }

// EncodeTo implements Payload.
func (p *Orientation) EncodeTo(w *Writer) {
	w.WriteUint64(p.Timestamp)
	w.WriteFloat32(p.RotationMatrixValue)
	w.WriteFloat32(p.W)
	w.WriteFloat32(p.X)
	w.WriteFloat32(p.Y)
	w.WriteFloat32(p.Z)
}

// DecodeFrom implements Payload.
func (p *Orientation) DecodeFrom(r *Reader) {
	p.Timestamp = r.ReadUint64()
	p.RotationMatrixValue = r.ReadFloat32()
	p.W = r.ReadFloat32()
	p.X = r.ReadFloat32()
	p.Y = r.ReadFloat32()
	p.Z = r.ReadFloat32()
}
