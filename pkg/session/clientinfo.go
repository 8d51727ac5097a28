package session

import "github.com/openxbox/smartglass/pkg/packet"

// ClientInfo describes the companion device announced in LocalJoin.
type ClientInfo struct {
	DeviceType         packet.ClientType
	NativeWidth        uint16
	NativeHeight       uint16
	DpiX               uint16
	DpiY               uint16
	DeviceCapabilities packet.DeviceCapabilities
	ClientVersion      uint32
	OSMajorVersion     uint32
	OSMinorVersion     uint32
	DisplayName        string
}

// WindowsClientInfo mimics the SmartGlass desktop client.
var WindowsClientInfo = ClientInfo{
	DeviceType:         packet.ClientTypeWindowsStore,
	NativeWidth:        1080,
	NativeHeight:       1920,
	DpiX:               96,
	DpiY:               96,
	DeviceCapabilities: packet.DeviceCapabilityAll,
	ClientVersion:      39,
	OSMajorVersion:     6,
	OSMinorVersion:     2,
	DisplayName:        "SmartGlass-PC",
}

// AndroidClientInfo mimics the SmartGlass Android client (portrait
// tablet resolution).
var AndroidClientInfo = ClientInfo{
	DeviceType:         packet.ClientTypeAndroid,
	NativeWidth:        720,
	NativeHeight:       1280,
	DpiX:               160,
	DpiY:               160,
	DeviceCapabilities: packet.DeviceCapabilityAll,
	ClientVersion:      151117100,
	OSMajorVersion:     22,
	OSMinorVersion:     0,
	DisplayName:        "com.microsoft.xboxone.smartglass.beta",
}

// localJoinPayload builds the LocalJoin message payload for the client.
func (c ClientInfo) localJoinPayload() *packet.LocalJoin {
	return &packet.LocalJoin{
		DeviceType:         c.DeviceType,
		NativeWidth:        c.NativeWidth,
		NativeHeight:       c.NativeHeight,
		DpiX:               c.DpiX,
		DpiY:               c.DpiY,
		DeviceCapabilities: c.DeviceCapabilities,
		ClientVersion:      c.ClientVersion,
		OSMajorVersion:     c.OSMajorVersion,
		OSMinorVersion:     c.OSMinorVersion,
		DisplayName:        c.DisplayName,
	}
}
