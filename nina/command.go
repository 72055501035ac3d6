package nina

import "fmt"

// Command is a coprocessor command code.
type Command byte

// Coprocessor command codes.
const (
	// CmdStartConnect carries a single security-mode byte. Stock NINA firmware
	// reads 0x10 as set-network with an SSID argument, so real hardware must run
	// firmware that implements this mapping.
	CmdStartConnect  Command = 0x10
	CmdSetPassphrase Command = 0x11
	CmdGetConnStatus Command = 0x20
	CmdGetIPAddr     Command = 0x21
	CmdGetMACAddr    Command = 0x22
	CmdGetCurrSSID   Command = 0x23
	CmdGetCurrRSSI   Command = 0x25
	CmdScanNetworks  Command = 0x27
	CmdDisconnect    Command = 0x30
	CmdGetIdxRSSI    Command = 0x32
	CmdGetIdxEnct    Command = 0x33
	CmdGetFwVersion  Command = 0x37
	CmdGetIdxChannel Command = 0x3D
	CmdSetPinMode    Command = 0x50
	CmdDigitalWrite  Command = 0x51
	CmdAnalogWrite   Command = 0x52
)

var commandNames = map[Command]string{
	CmdStartConnect:  "StartConnect",
	CmdSetPassphrase: "SetPassphrase",
	CmdGetConnStatus: "GetConnStatus",
	CmdGetIPAddr:     "GetIPAddr",
	CmdGetMACAddr:    "GetMACAddr",
	CmdGetCurrSSID:   "GetCurrSSID",
	CmdGetCurrRSSI:   "GetCurrRSSI",
	CmdScanNetworks:  "ScanNetworks",
	CmdDisconnect:    "Disconnect",
	CmdGetIdxRSSI:    "GetIdxRSSI",
	CmdGetIdxEnct:    "GetIdxEnct",
	CmdGetFwVersion:  "GetFwVersion",
	CmdGetIdxChannel: "GetIdxChannel",
	CmdSetPinMode:    "SetPinMode",
	CmdDigitalWrite:  "DigitalWrite",
	CmdAnalogWrite:   "AnalogWrite",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}

	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

// Argument widths accepted by the firmware.
const (
	MaxSSIDLen       = 32
	MaxPassphraseLen = 64
)

// ConnStatus is the link status reported by the coprocessor.
type ConnStatus uint8

const (
	StatusIdle           ConnStatus = 0
	StatusNoSSIDAvail    ConnStatus = 1
	StatusScanCompleted  ConnStatus = 2
	StatusConnected      ConnStatus = 3
	StatusConnectFailed  ConnStatus = 4
	StatusConnectionLost ConnStatus = 5
	StatusDisconnected   ConnStatus = 6
	StatusAPListening    ConnStatus = 7
	StatusAPConnected    ConnStatus = 8
	StatusAPFailed       ConnStatus = 9
	StatusNoModule       ConnStatus = 255
)

func (s ConnStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusNoSSIDAvail:
		return "NoSSIDAvail"
	case StatusScanCompleted:
		return "ScanCompleted"
	case StatusConnected:
		return "Connected"
	case StatusConnectFailed:
		return "ConnectFailed"
	case StatusConnectionLost:
		return "ConnectionLost"
	case StatusDisconnected:
		return "Disconnected"
	case StatusAPListening:
		return "APListening"
	case StatusAPConnected:
		return "APConnected"
	case StatusAPFailed:
		return "APFailed"
	case StatusNoModule:
		return "NoModule"
	default:
		return fmt.Sprintf("ConnStatus(%d)", uint8(s))
	}
}

func (s ConnStatus) valid() bool {
	return s <= StatusAPFailed || s == StatusNoModule
}

// SecurityMode selects how StartConnect associates.
type SecurityMode uint8

const (
	// OpenNetwork associates without authentication.
	OpenNetwork SecurityMode = 0
	// WpaPsk associates with the stored passphrase.
	WpaPsk SecurityMode = 1
)

func (m SecurityMode) String() string {
	switch m {
	case OpenNetwork:
		return "OpenNetwork"
	case WpaPsk:
		return "WpaPsk"
	default:
		return fmt.Sprintf("SecurityMode(%d)", uint8(m))
	}
}

// EncryptionType is the encryption advertised by a scanned network.
type EncryptionType uint8

const (
	EncryptionTKIP    EncryptionType = 2
	EncryptionCCMP    EncryptionType = 4
	EncryptionWEP     EncryptionType = 5
	EncryptionNone    EncryptionType = 7
	EncryptionAuto    EncryptionType = 8
	EncryptionUnknown EncryptionType = 255
)

func (e EncryptionType) String() string {
	switch e {
	case EncryptionTKIP:
		return "TKIP"
	case EncryptionCCMP:
		return "CCMP"
	case EncryptionWEP:
		return "WEP"
	case EncryptionNone:
		return "None"
	case EncryptionAuto:
		return "Auto"
	case EncryptionUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("EncryptionType(%d)", uint8(e))
	}
}

func (e EncryptionType) valid() bool {
	switch e {
	case EncryptionTKIP, EncryptionCCMP, EncryptionWEP, EncryptionNone, EncryptionAuto, EncryptionUnknown:
		return true
	}

	return false
}

// PinMode configures a coprocessor GPIO.
type PinMode uint8

const (
	PinInput  PinMode = 0
	PinOutput PinMode = 1
)
