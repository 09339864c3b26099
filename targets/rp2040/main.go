//go:build rp2040 || rp2350

package main

import (
	"machine"

	"github.com/benbjohnson/clock"

	"gyroled/core"
	"gyroled/gyro"
	"gyroled/rtos"
	"gyroled/telemetry"
)

// Raspberry Pi Pico wiring: user button on GPIO15 to ground, L3GD20 on I2C0
// (GPIO4 SDA, GPIO5 SCL) with INT2 on GPIO14, indicators on GPIO16/GPIO17.
const (
	buttonPin    core.GPIOPin = 15
	dataReadyPin core.GPIOPin = 14
	signalAPin   core.GPIOPin = 16
	signalBPin   core.GPIOPin = 17
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitDebugUART()
	InitUSB()

	cfg := core.DefaultConfig()
	cfg.Mode = GetMode()
	cfg.ButtonPin = buttonPin
	cfg.ButtonActiveHigh = false
	cfg.DataReadyPin = dataReadyPin
	cfg.SignalAPin = signalAPin
	cfg.SignalBPin = signalBPin
	cfg.ButtonIRQ = core.IRQSource(buttonPin)
	cfg.DataReadyIRQ = core.IRQSource(dataReadyPin)

	// Telemetry goes first so a boot failure still reaches the host
	reporter := telemetry.NewReporter(usbWriter{}, 1)
	halt := core.SetFatalHandler(nil)
	core.SetFatalHandler(func(reason string) {
		reporter.Fatal(reason)
		halt(reason)
	})

	gpioDriver := NewRPGPIODriver()
	gpioDriver.ConfigureOutput(cfg.SignalAPin)
	gpioDriver.ConfigureOutput(cfg.SignalBPin)
	button := gpioDriver.ConfigureInput(cfg.ButtonPin, cfg.ButtonActiveHigh)
	dataReady := gpioDriver.ConfigureInput(cfg.DataReadyPin, true)

	err = machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400_000,
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
	})
	if err != nil {
		core.Fatal("i2c0: " + err.Error())
		return
	}
	sensor := gyro.NewL3GD20(machine.I2C0, gyro.DefaultAddress)

	kernel := rtos.NewRuntimeKernel(clock.New(), nil)
	irq := NewPinIRQController()

	app, err := core.NewApp(cfg, core.Platform{
		GPIO:   gpioDriver,
		IRQ:    irq,
		Gyro:   sensor,
		Kernel: kernel,
	})
	if err != nil {
		core.Fatal("app: " + err.Error())
		return
	}
	app.OnCycle(reporter.Observe)

	// Both edges of the button, rising edge of DRDY
	if err := irq.Attach(cfg.ButtonIRQ, button, machine.PinToggle, app.ButtonSampler().HandleInterrupt); err != nil {
		core.Fatal("button irq: " + err.Error())
		return
	}
	if err := irq.Attach(cfg.DataReadyIRQ, dataReady, machine.PinRising, app.DataReady().HandleInterrupt); err != nil {
		core.Fatal("data-ready irq: " + err.Error())
		return
	}

	reporter.Identify(cfg.Mode, cfg.Period)
	kernel.Start()
	if err := app.Init(); err != nil {
		return
	}

	select {}
}
