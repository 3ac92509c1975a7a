package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/irprobe/pkg/bench"
	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/monitor"
	"github.com/itohio/irprobe/pkg/sample"
	"github.com/itohio/irprobe/pkg/scope"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use a simulated probe instead of the bench logger")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
		debugFlag          = flag.Bool("debug", false, "Log probe transitions of the simulated probe")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Bench.AverageSamples = *averageSamplesFlag
	}

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	application := app.NewWithID("com.itohio.irprobe")

	window := application.NewWindow("IR Probe Bench")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		log:        logger,
		monitor:    monitor.New(cfg),
		window:     window,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(cfg)
	subscribeScope(state)

	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, state.scopeWidget))
	window.ShowAndRun()
}

// measurementChain tracks the components of the measurement chain for graceful shutdown.
type measurementChain struct {
	device         bench.Device
	modeGoroutine  chan struct{} // Closed when the mode-line goroutine exits
	monitorRoutine chan struct{} // Closed when the monitor goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	log         *slog.Logger
	device      bench.Device
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	modeBtn     *widget.Button
	useMock     bool
	simple      bool              // mode-select line as last reported; UI goroutine only
	chain       *measurementChain // Current measurement chain (nil if not connected)

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the application toolbar with Connect, Settings and Mode buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	modeBtn := widget.NewButton(modeLabel(false), func() {
		handleModeToggle(state)
	})
	modeBtn.Disable()
	state.modeBtn = modeBtn

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn),
		container.NewHBox(modeBtn),
		nil,
	)
}

// closeMeasurementChain gracefully closes the measurement chain.
// Waits for all goroutines to finish and channels to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	// Closing the device closes the raw samples channel
	if chain.device != nil {
		chain.device.Close()
	}
	if chain.modeGoroutine != nil {
		<-chain.modeGoroutine
	}
	if chain.monitorRoutine != nil {
		<-chain.monitorRoutine
	}
}

func (state *appState) newDevice() bench.Device {
	if state.useMock {
		return bench.NewMock(&state.cfg.Mock, state.cfg.Settings(), state.log)
	}
	return bench.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, bench.DefaultBufferSize)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeMeasurementChain(state.chain)
		state.chain = nil
		state.device = nil
		state.modeBtn.Disable()
		state.log.Info("disconnected", "mock", state.useMock)
		return
	}

	device := state.newDevice()
	if err := device.Connect(); err != nil {
		target := state.cfg.Serial.Port
		if state.useMock {
			target = "simulated probe"
		}
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", target, err), state.window)
		return
	}
	state.device = device
	state.log.Info("connected", "mock", state.useMock, "port", state.cfg.Serial.Port)

	state.modeBtn.Enable()

	state.monitor.ResetShutdown()
	state.monitor.Reset()

	// One branch follows the mode-select line, the other feeds the converters
	forMode, forConverter := tee(device.Samples(), bench.DefaultBufferSize)

	modeDone := make(chan struct{})
	monitorDone := make(chan struct{})

	go func() {
		defer close(modeDone)
		followModeLine(state, forMode)
	}()

	var samples <-chan sample.Sample
	if n := state.cfg.Bench.AverageSamples; n > 0 {
		samples = sample.NewAveragingConverter(state.cfg, n, 500)(forConverter)
	} else {
		samples = sample.NewConverter(state.cfg, 500)(forConverter)
	}

	go func() {
		defer close(monitorDone)
		state.monitor.ProcessSamples(samples)
	}()

	state.chain = &measurementChain{
		device:         device,
		modeGoroutine:  modeDone,
		monitorRoutine: monitorDone,
	}
}

// subscribeScope forwards monitor updates to the scope, throttled to ~60 FPS
// to keep the UI smooth.
func subscribeScope(state *appState) {
	const updateInterval = 16 * time.Millisecond
	state.monitor.OnUpdate(func(samples []sample.Sample, events []monitor.Event) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, events)
		})
	})
}
