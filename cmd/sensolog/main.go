// cmd/sensolog/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sensolog/internal/config"
	"sensolog/internal/database"
	"sensolog/internal/datalogger"
	"sensolog/internal/handler"
	"sensolog/internal/repository"
	"sensolog/internal/routes"
	"sensolog/internal/scanner"
	"sensolog/internal/sensosys"
	"sensolog/internal/setup"
	"sensolog/internal/source"
	"sensolog/internal/utils"
)

// Exit codes: 0 for a clean stop (including "no instruments found"),
// 1 for configuration or input validation failures.
const (
	exitOK            = 0
	exitConfigFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	deviceConfigFile := flag.String("device-config", "", "bus configuration JSON file; when empty the guided setup runs")
	configFile := flag.String("config", "", "application config file (yaml)")
	outputDir := flag.String("output-dir", "", "directory for the scan snapshot and CSV output; empty disables saving")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return exitConfigFailure
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return exitConfigFailure
	}
	defer utils.CloseLogger(logger)

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version)
	defer serviceLogger.LogServiceStop("process exit")

	app := &Application{
		config: cfg,
		logger: logger,
	}
	defer app.shutdown()

	return app.run(*deviceConfigFile, *outputDir)
}

// Application wires the logging pipeline together
type Application struct {
	config *config.Config
	logger *zap.Logger

	prompter   *setup.ReadlinePrompter
	connection *sensosys.Connection
	database   *database.DB
	server     *http.Server
}

// run walks the startup sequence: resolve configuration, scan the bus,
// then drive the logging loop until the duration elapses or a signal
// arrives.
func (app *Application) run(deviceConfigFile, outputDir string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if outputDir == "" {
		app.logger.Info("No output dir set, results of initialization will not be saved")
	} else {
		app.logger.Info("Results of initialization will be saved", zap.String("output_dir", outputDir))
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			app.logger.Error("Failed to create output directory", zap.Error(err))
			return exitConfigFailure
		}
	}

	// Enumerate serial ports before anything touches the bus.
	ports, err := sensosys.ListPorts()
	if err != nil || len(ports) == 0 {
		app.logger.Error("No available serial ports found, exiting", zap.Error(err))
		return exitConfigFailure
	}
	app.logger.Info("Found available serial ports", zap.Strings("ports", ports))

	prompter, err := setup.NewReadlinePrompter()
	if err != nil {
		app.logger.Error("Failed to initialize console", zap.Error(err))
		return exitConfigFailure
	}
	app.prompter = prompter

	resolver := setup.NewResolver(prompter, ports, app.logger)
	deviceConfig, err := resolver.Resolve(deviceConfigFile)
	if err != nil {
		app.logger.Error("Bus configuration failed, exiting", zap.Error(err))
		return exitConfigFailure
	}
	app.logger.Info("Bus configuration resolved",
		zap.String("port", deviceConfig.Port),
		zap.Bool("scan_by_file", deviceConfig.ScanByFile),
		zap.Float64("time_out", deviceConfig.TimeOut),
	)

	if deviceConfigFile == "" && outputDir != "" {
		if path, err := setup.DumpConfig(deviceConfig, outputDir); err != nil {
			app.logger.Warn("Failed to save configuration dump", zap.Error(err))
		} else {
			app.logger.Info("Configuration saved", zap.String("path", path))
		}
	}

	connection, err := sensosys.NewConnection(&sensosys.ConnectionConfig{
		Port:     deviceConfig.Port,
		BaudRate: app.config.Serial.BaudRate,
		DataBits: app.config.Serial.DataBits,
		StopBits: app.config.Serial.StopBits,
		Parity:   app.config.Serial.Parity,
		Timeout:  time.Duration(deviceConfig.TimeOut * float64(time.Second)),
	}, app.logger)
	if err != nil {
		app.logger.Error("Invalid serial configuration", zap.Error(err))
		return exitConfigFailure
	}
	if err := connection.Open(ctx); err != nil {
		app.logger.Error("Failed to open bus port, exiting", zap.Error(err))
		return exitConfigFailure
	}
	app.connection = connection

	client := sensosys.NewClient(connection, app.logger)

	addresses := scanner.FullRange()
	if deviceConfig.ScanByFile {
		addresses, err = scanner.LoadKnownAddresses(app.config.Scan.KnownAddressesFile)
		if err != nil {
			app.logger.Error("Failed to load known addresses, exiting", zap.Error(err))
			return exitConfigFailure
		}
	}

	busScanner := scanner.NewScanner(client, app.logger)
	scanResult, err := busScanner.Scan(ctx, addresses)
	if err != nil {
		app.logger.Error("Bus scan failed, exiting", zap.Error(err))
		return exitConfigFailure
	}

	if len(scanResult.List) == 0 {
		app.logger.Error("No instruments found, please check the connection, exiting")
		return exitOK
	}

	keepRunning, err := resolver.ConfirmContinue()
	if err != nil {
		app.logger.Error("Invalid input, exiting", zap.Error(err))
		return exitConfigFailure
	}
	if !keepRunning {
		app.logger.Info("Exiting manually")
		return exitOK
	}

	if outputDir != "" {
		if path, err := scanResult.WriteSnapshot(outputDir); err != nil {
			app.logger.Warn("Failed to save instrument snapshot", zap.Error(err))
		} else {
			app.logger.Info("Instrument snapshot saved", zap.String("path", path))
		}
	}

	measurementSource := source.New(scanResult.List, client, app.logger)
	latest := datalogger.NewLatestStore()
	runID := uuid.New()

	csvPath := app.config.Output.CSVFileName
	if outputDir != "" {
		csvPath = filepath.Join(outputDir, app.config.Output.CSVFileName)
	}
	csvOutput, err := datalogger.NewCSVOutput(csvPath, app.config.CSVDelimiterRune(), app.logger)
	if err != nil {
		app.logger.Error("Failed to create CSV output", zap.Error(err))
		return exitConfigFailure
	}

	outputs := []datalogger.Output{csvOutput, latest}

	if app.config.Database.Enabled {
		db, err := database.NewConnection(app.config, app.logger)
		if err != nil {
			app.logger.Error("Failed to connect to database", zap.Error(err))
			return exitConfigFailure
		}
		app.database = db

		if err := database.NewMigrator(db, app.logger).Up(); err != nil {
			app.logger.Error("Failed to run database migrations", zap.Error(err))
			return exitConfigFailure
		}

		repo := repository.NewMeasurementRepository(db, app.logger)
		if err := repo.SaveInstruments(ctx, scanResult.Instruments); err != nil {
			app.logger.Warn("Failed to persist instruments", zap.Error(err))
		}
		outputs = append(outputs, repository.NewPostgresOutput(repo, runID, app.logger))
	}

	if app.config.Server.Enabled {
		wsHandler := handler.NewWebSocketHandler(app.logger)
		outputs = append(outputs, wsHandler)
		app.startServer(scanResult, latest, wsHandler)
	}

	trigger, err := datalogger.NewTimeTrigger(
		measurementSource,
		outputs,
		app.config.Run.Interval,
		app.config.Run.Duration,
		runID,
		app.logger,
	)
	if err != nil {
		app.logger.Error("Invalid logging run configuration", zap.Error(err))
		return exitConfigFailure
	}

	if err := trigger.Run(ctx); err != nil {
		app.logger.Error("Data logging failed", zap.Error(err))
		return exitConfigFailure
	}

	return exitOK
}

// startServer brings up the read-only HTTP API in the background
func (app *Application) startServer(scanResult *scanner.Result, latest *datalogger.LatestStore, wsHandler *handler.WebSocketHandler) {
	router := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		scanResult.Instruments,
		latest,
		wsHandler,
	).SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

// shutdown releases held resources in reverse order of acquisition
func (app *Application) shutdown() {
	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("HTTP server shutdown error", zap.Error(err))
		} else {
			app.logger.Info("HTTP server stopped")
		}
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		}
	}

	if app.connection != nil {
		if err := app.connection.Close(); err != nil {
			app.logger.Error("Serial port close error", zap.Error(err))
		}
	}

	if app.prompter != nil {
		app.prompter.Close()
	}

	app.logger.Info("Shutdown completed")
}
