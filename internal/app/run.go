package app

import (
	"fmt"
	"io"
	"log"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"

	"opendvp/qupath2lmd/annotation"
)

const fyneAppID = "org.opendvp.qupath2lmd"

// Run loads the configuration and starts the desktop UI.
func Run(cfgPath string) error {
	cfg, err := annotation.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBind := binding.NewString()
	capture := newLogCapture(logBind, 300)
	defer capture.Close()
	logger := log.New(io.MultiWriter(os.Stdout, capture), "", log.LstdFlags)

	svc := annotation.NewService(cfg, logger)
	logger.Printf("[INFO] session %s started", svc.Session().ID())

	a := fyneapp.NewWithID(fyneAppID)
	u := buildUI(a, svc, logBind, logger, cfgPath)
	u.w.ShowAndRun()

	if err := annotation.SaveConfig(cfgPath, svc.Config()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
