package nina

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/arloliu/go-espwifi/frame"
)

// NetworkData is the addressing the coprocessor obtained for its station interface.
type NetworkData struct {
	Address netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

// GetFirmwareVersion returns the coprocessor firmware version string.
func (c *Client) GetFirmwareVersion() (string, error) {
	reply, err := c.call(CmdGetFwVersion, frame.Expect(0))
	if err != nil {
		return "", err
	}

	return reply.String(0)
}

// SetNetworkCredentials stores the SSID and passphrase used by StartConnect.
//
// ssid is limited to 32 bytes and passphrase to 64; longer values fail with
// frame.ErrArgumentTooLarge without touching the bus.
func (c *Client) SetNetworkCredentials(ssid, passphrase string) error {
	return c.callStatus(CmdSetPassphrase,
		frame.String("ssid", ssid, MaxSSIDLen),
		frame.String("passphrase", passphrase, MaxPassphraseLen),
	)
}

// StartConnect begins association with the stored credentials. It returns
// once the coprocessor accepted the request; poll PollLinkStatus for the result.
func (c *Client) StartConnect(mode SecurityMode) error {
	if mode != OpenNetwork && mode != WpaPsk {
		return fmt.Errorf("%w: security mode %s", ErrInvalidArgument, mode)
	}

	return c.callStatus(CmdStartConnect, frame.Uint8("mode", uint8(mode)))
}

// PollLinkStatus returns the current link status.
func (c *Client) PollLinkStatus() (ConnStatus, error) {
	reply, err := c.call(CmdGetConnStatus, frame.Expect(1))
	if err != nil {
		return StatusIdle, err
	}

	v, err := reply.Uint8(0)
	if err != nil {
		return StatusIdle, err
	}

	status := ConnStatus(v)
	if !status.valid() {
		return StatusIdle, fmt.Errorf("%w: %d", ErrUnexpectedStatus, v)
	}

	return status, nil
}

// GetNetworkData returns the station address, netmask and gateway.
func (c *Client) GetNetworkData() (NetworkData, error) {
	reply, err := c.call(CmdGetIPAddr, frame.Expect(4, 4, 4))
	if err != nil {
		return NetworkData{}, err
	}

	var nd NetworkData
	if nd.Address, err = reply.IPv4(0); err != nil {
		return NetworkData{}, err
	}
	if nd.Netmask, err = reply.IPv4(1); err != nil {
		return NetworkData{}, err
	}
	if nd.Gateway, err = reply.IPv4(2); err != nil {
		return NetworkData{}, err
	}

	return nd, nil
}

// GetAssignedAddress returns the station address. It fails with ErrNotReady
// while the coprocessor has no address.
func (c *Client) GetAssignedAddress() (netip.Addr, error) {
	nd, err := c.GetNetworkData()
	if err != nil {
		return netip.Addr{}, err
	}

	if nd.Address.IsUnspecified() {
		return netip.Addr{}, fmt.Errorf("%w: no address assigned", ErrNotReady)
	}

	return nd.Address, nil
}

// ScanNetworks returns the SSIDs found by a network scan. Their index in the
// result is the index accepted by NetworkRSSI, NetworkEncryption and NetworkChannel.
func (c *Client) ScanNetworks() ([]string, error) {
	reply, err := c.call(CmdScanNetworks, frame.AnyShape)
	if err != nil {
		return nil, err
	}

	ssids := make([]string, reply.Len())
	for i := range ssids {
		if ssids[i], err = reply.String(i); err != nil {
			return nil, err
		}
	}

	return ssids, nil
}

// NetworkRSSI returns the signal strength in dBm of a scanned network.
func (c *Client) NetworkRSSI(idx uint8) (int32, error) {
	reply, err := c.call(CmdGetIdxRSSI, frame.Expect(4), frame.Uint8("index", idx))
	if err != nil {
		return 0, err
	}

	return reply.Int32LE(0)
}

// NetworkEncryption returns the encryption type of a scanned network.
func (c *Client) NetworkEncryption(idx uint8) (EncryptionType, error) {
	reply, err := c.call(CmdGetIdxEnct, frame.Expect(1), frame.Uint8("index", idx))
	if err != nil {
		return EncryptionUnknown, err
	}

	v, err := reply.Uint8(0)
	if err != nil {
		return EncryptionUnknown, err
	}

	enc := EncryptionType(v)
	if !enc.valid() {
		return EncryptionUnknown, fmt.Errorf("%w: encryption type %d", ErrUnexpectedStatus, v)
	}

	return enc, nil
}

// NetworkChannel returns the WiFi channel of a scanned network.
func (c *Client) NetworkChannel(idx uint8) (uint8, error) {
	reply, err := c.call(CmdGetIdxChannel, frame.Expect(1), frame.Uint8("index", idx))
	if err != nil {
		return 0, err
	}

	return reply.Uint8(0)
}

// CurrentSSID returns the SSID of the associated network.
func (c *Client) CurrentSSID() (string, error) {
	reply, err := c.call(CmdGetCurrSSID, frame.Expect(0), frame.Uint8("dummy", 0xFF))
	if err != nil {
		return "", err
	}

	return reply.String(0)
}

// CurrentRSSI returns the signal strength in dBm of the associated network.
func (c *Client) CurrentRSSI() (int32, error) {
	reply, err := c.call(CmdGetCurrRSSI, frame.Expect(4), frame.Uint8("dummy", 0xFF))
	if err != nil {
		return 0, err
	}

	return reply.Int32LE(0)
}

// MACAddress returns the station MAC address.
func (c *Client) MACAddress() (net.HardwareAddr, error) {
	reply, err := c.call(CmdGetMACAddr, frame.Expect(6), frame.Uint8("dummy", 0xFF))
	if err != nil {
		return nil, err
	}

	b, err := reply.Bytes(0)
	if err != nil {
		return nil, err
	}

	return net.HardwareAddr(b), nil
}

// Disconnect drops the current association.
func (c *Client) Disconnect() error {
	return c.callStatus(CmdDisconnect, frame.Uint8("dummy", 0xFF))
}

// PinMode configures a GPIO of the coprocessor.
func (c *Client) PinMode(pin uint8, mode PinMode) error {
	return c.callStatus(CmdSetPinMode, frame.Uint8("pin", pin), frame.Uint8("mode", uint8(mode)))
}

// DigitalWrite drives a coprocessor GPIO high or low.
func (c *Client) DigitalWrite(pin uint8, high bool) error {
	var v uint8
	if high {
		v = 1
	}

	return c.callStatus(CmdDigitalWrite, frame.Uint8("pin", pin), frame.Uint8("value", v))
}

// AnalogWrite sets the PWM duty cycle of a coprocessor GPIO, 0 to 255.
func (c *Client) AnalogWrite(pin uint8, value uint8) error {
	return c.callStatus(CmdAnalogWrite, frame.Uint8("pin", pin), frame.Uint8("value", value))
}
