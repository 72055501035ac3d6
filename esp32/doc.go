// Package esp32 assembles a complete host-side driver for an ESP32 WiFi
// coprocessor running NINA-style firmware on an SPI bus.
//
// A Driver wires a bus.Transport, a nina.Client and a link.StateMachine from
// one DriverConfig:
//
//	cfg, err := esp32.NewDriverConfig("GPIO8", "GPIO22", "GPIO24",
//		esp32.WithSPIPort("/dev/spidev0.0"),
//		esp32.WithBootPin("GPIO25"),
//	)
//	drv, err := esp32.Open(cfg)
//	err = drv.Init()
//	err = drv.Begin("ssid", "passphrase")
//	for drv.Tick() == link.Connecting {
//		time.Sleep(250 * time.Millisecond)
//	}
//
// New accepts any bus.Hardware, so the same driver runs against a simulator.
package esp32
