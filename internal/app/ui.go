package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"opendvp/qupath2lmd/annotation"
)

// pickedFile is an uploaded input kept in memory for the session.
type pickedFile struct {
	name string
	data []byte
}

type uiState struct {
	service *annotation.Service
	logger  *log.Logger
	cfgPath string

	w          fyne.Window
	log        *widget.Entry
	status     *widget.Label
	statusBind binding.String

	geojson     pickedFile
	geojsonLbl  *widget.Label
	calibEntry  [3]*widget.Entry
	wellsEntry  *widget.Entry
	outDirEntry *widget.Entry

	classFirst  *widget.Entry
	classSecond *widget.Entry
	classReps   *widget.Entry

	schemeFirst  *widget.Entry
	schemeSecond *widget.Entry
	schemeReps   *widget.Entry

	labelGeojson    pickedFile
	labelGeojsonLbl *widget.Label
	metadata        pickedFile
	metadataLbl     *widget.Label
	nameKey         *widget.SelectEntry
	valueKey        *widget.SelectEntry

	busyMu  sync.Mutex
	buttons []*widget.Button
}

func buildUI(a fyne.App, svc *annotation.Service, logBind binding.String, logger *log.Logger, cfgPath string) *uiState {
	u := &uiState{service: svc, logger: logger, cfgPath: cfgPath}
	cfg := svc.Config()
	u.w = a.NewWindow("QuPath to LMD")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("Ready")
	u.status = widget.NewLabelWithData(u.statusBind)

	u.log = widget.NewEntryWithData(logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("Log")
	u.log.Disable()

	tabs := container.NewAppTabs(
		container.NewTabItem("1. GeoJSON", u.buildGeoJSONStep(cfg)),
		container.NewTabItem("2. Samples and wells", u.buildWellsStep()),
		container.NewTabItem("3. Contours", u.buildContoursStep(cfg)),
		container.NewTabItem("QuPath classes", u.buildClassesTab(cfg)),
		container.NewTabItem("Default wells", u.buildSchemeTab(cfg)),
		container.NewTabItem("Labelled shapes", u.buildLabelTab(cfg)),
	)

	bottom := container.NewBorder(
		container.NewVBox(widget.NewSeparator(), u.status),
		nil, nil, nil,
		u.log,
	)
	split := container.NewVSplit(tabs, bottom)
	split.Offset = 0.6

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(980, 760))
	return u
}

func (u *uiState) newButton(label string, icon fyne.Resource, action func()) *widget.Button {
	btn := widget.NewButtonWithIcon(label, icon, action)
	u.buttons = append(u.buttons, btn)
	return btn
}

func (u *uiState) buildGeoJSONStep(cfg annotation.Config) fyne.CanvasObject {
	u.geojsonLbl = widget.NewLabel("No file selected")
	pick := widget.NewButtonWithIcon("Choose GeoJSON", theme.FolderOpenIcon(), func() {
		u.pickFile([]string{".geojson", ".json"}, func(f pickedFile) {
			u.geojson = f
			u.geojsonLbl.SetText(f.name)
			u.appendLog(fmt.Sprintf("[INFO] selected %s (%d bytes)", f.name, len(f.data)))
		})
	})
	placeholders := []string{"first_calib", "second_calib", "third_calib"}
	form := widget.NewForm()
	for i := range u.calibEntry {
		e := widget.NewEntry()
		e.SetPlaceHolder(placeholders[i])
		e.SetText(cfg.CalibrationNames[i])
		e.OnChanged = func(string) { u.saveConfig() }
		u.calibEntry[i] = e
		form.Append(fmt.Sprintf("Calibration point %d", i+1), e)
	}
	check := u.newButton("Load and check the geojson file", theme.ConfirmIcon(), u.onCheckGeoJSON)
	return container.NewVBox(
		widget.NewLabelWithStyle("Upload your .geojson file from QuPath, the order of calibration points is important",
			fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(pick, u.geojsonLbl),
		form,
		check,
	)
}

func (u *uiState) buildWellsStep() fyne.CanvasObject {
	u.wellsEntry = widget.NewMultiLineEntry()
	u.wellsEntry.SetPlaceHolder("{\"sample_1\": \"C3\",\n \"sample_2\": \"C5\",\n \"sample_3\": \"C7\"}")
	u.wellsEntry.SetMinRowsVisible(8)
	importBtn := widget.NewButtonWithIcon("Import CSV", theme.FileIcon(), func() {
		u.pickPath([]string{".csv"}, func(path string) {
			text, err := u.service.ImportSampleWellsCSV(path)
			if err != nil {
				u.showError(err)
				return
			}
			u.wellsEntry.SetText(text)
		})
	})
	check := u.newButton("Check the samples and wells", theme.ConfirmIcon(), u.onCheckWells)
	return container.NewBorder(
		widget.NewLabel("Sample names are checked against the uploaded geojson file"),
		container.NewGridWithColumns(2, importBtn, check),
		nil, nil,
		u.wellsEntry,
	)
}

func (u *uiState) buildContoursStep(cfg annotation.Config) fyne.CanvasObject {
	u.outDirEntry = widget.NewEntry()
	u.outDirEntry.SetText(cfg.OutputDir)
	u.outDirEntry.OnChanged = func(string) { u.saveConfig() }
	create := u.newButton("Process geojson and create the contours", theme.DocumentSaveIcon(), u.onCreateContours)
	return container.NewVBox(
		widget.NewLabel("Creates the .xml file for the LMD, a preview image and the 384 well plate scheme"),
		widget.NewForm(widget.NewFormItem("Output directory", u.outDirEntry)),
		create,
	)
}

func (u *uiState) buildClassesTab(cfg annotation.Config) fyne.CanvasObject {
	u.classFirst, u.classSecond, u.classReps = categoricalEntries(cfg.Replicates)
	create := u.newButton("Create class names for QuPath", theme.ContentAddIcon(), u.onCreateClasses)
	return container.NewVBox(
		widget.NewLabel("Creates a class for every combination, replace classifiers/annotations/classes.json in your QuPath project with the result"),
		widget.NewForm(
			widget.NewFormItem("First categorical", u.classFirst),
			widget.NewFormItem("Second categorical", u.classSecond),
			widget.NewFormItem("Replicates", u.classReps),
		),
		create,
	)
}

func (u *uiState) buildSchemeTab(cfg annotation.Config) fyne.CanvasObject {
	u.schemeFirst, u.schemeSecond, u.schemeReps = categoricalEntries(cfg.Replicates)
	create := u.newButton("Create Samples and wells scheme with default wells", theme.ContentAddIcon(), u.onCreateScheme)
	return container.NewVBox(
		widget.NewLabel("Default wells are spaced (C3, C5, C7) for easier pipetting"),
		widget.NewForm(
			widget.NewFormItem("First categorical", u.schemeFirst),
			widget.NewFormItem("Second categorical", u.schemeSecond),
			widget.NewFormItem("Replicates", u.schemeReps),
		),
		create,
	)
}

func (u *uiState) buildLabelTab(cfg annotation.Config) fyne.CanvasObject {
	u.labelGeojsonLbl = widget.NewLabel("No file selected")
	u.metadataLbl = widget.NewLabel("No file selected")
	u.nameKey = widget.NewSelectEntry(nil)
	u.nameKey.SetPlaceHolder("Class name")
	u.nameKey.SetText(cfg.Metadata.Name)
	u.valueKey = widget.NewSelectEntry(nil)
	u.valueKey.SetPlaceHolder("Categorical column name")
	u.valueKey.SetText(cfg.Metadata.Value)

	pickGeo := widget.NewButtonWithIcon("Choose GeoJSON", theme.FolderOpenIcon(), func() {
		u.pickFile([]string{".geojson", ".json"}, func(f pickedFile) {
			u.labelGeojson = f
			u.labelGeojsonLbl.SetText(f.name)
		})
	})
	pickCSV := widget.NewButtonWithIcon("Choose CSV", theme.FolderOpenIcon(), func() {
		u.pickFile([]string{".csv", ".tsv", ".txt"}, func(f pickedFile) {
			u.metadata = f
			u.metadataLbl.SetText(f.name)
			table, err := annotation.ReadMetadataCSV(strings.NewReader(string(f.data)))
			if err != nil {
				u.showError(err)
				return
			}
			u.nameKey.SetOptions(table.Header)
			u.valueKey.SetOptions(table.Header)
			if u.nameKey.Text == "" {
				u.nameKey.SetText(table.DetectNameColumn())
			}
			labels := make([]string, 0, len(table.Header))
			for _, c := range table.ColumnChoices() {
				labels = append(labels, c.Label)
			}
			u.appendLog(fmt.Sprintf("[INFO] metadata columns: %s", strings.Join(labels, ", ")))
		})
	})
	process := u.newButton("Process metadata and geojson, for labelled shapes", theme.ConfirmIcon(), u.onLabelShapes)
	return container.NewVBox(
		widget.NewLabel("Colour shapes by a categorical column of a two column table"),
		container.NewHBox(pickGeo, u.labelGeojsonLbl),
		container.NewHBox(pickCSV, u.metadataLbl),
		widget.NewForm(
			widget.NewFormItem("Column with class names", u.nameKey),
			widget.NewFormItem("Column to colour with", u.valueKey),
		),
		process,
	)
}

func categoricalEntries(reps int) (*widget.Entry, *widget.Entry, *widget.Entry) {
	first := widget.NewEntry()
	first.SetPlaceHolder("celltype_A, celltype_B")
	second := widget.NewEntry()
	second.SetPlaceHolder("control, drug_treated")
	replicates := widget.NewEntry()
	replicates.SetText(strconv.Itoa(reps))
	replicates.Validator = func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			return errors.New("enter a positive number")
		}
		return nil
	}
	return first, second, replicates
}

func (u *uiState) currentConfig() annotation.Config {
	cfg := u.service.Config()
	for i, e := range u.calibEntry {
		if e != nil {
			cfg.CalibrationNames[i] = strings.TrimSpace(e.Text)
		}
	}
	if u.outDirEntry != nil && strings.TrimSpace(u.outDirEntry.Text) != "" {
		cfg.OutputDir = strings.TrimSpace(u.outDirEntry.Text)
	}
	if u.nameKey != nil {
		cfg.Metadata.Name = strings.TrimSpace(u.nameKey.Text)
	}
	if u.valueKey != nil {
		cfg.Metadata.Value = strings.TrimSpace(u.valueKey.Text)
	}
	return cfg
}

func (u *uiState) saveConfig() {
	cfg := u.currentConfig()
	u.service.UpdateConfig(cfg)
	if err := annotation.SaveConfig(u.cfgPath, u.service.Config()); err != nil {
		u.logger.Printf("[WARN] save config: %v", err)
	}
}

// runAction disables every action button while fn runs in the background.
func (u *uiState) runAction(name string, fn func() error) {
	u.saveConfig()
	u.setBusy(true)
	u.setStatus(name + "...")
	go func() {
		err := fn()
		u.setBusy(false)
		if err != nil {
			u.logger.Printf("[ERROR] %s: %v", name, err)
			u.setStatus("Error: " + name)
			u.showError(err)
			return
		}
		u.setStatus("Done: " + name)
	}()
}

func (u *uiState) onCheckGeoJSON() {
	if u.geojson.data == nil {
		dialog.ShowInformation("GeoJSON", "Please upload a file first.", u.w)
		return
	}
	u.runAction("check geojson", func() error {
		res, err := u.service.CheckGeoJSON(u.geojson.data)
		if err != nil {
			return err
		}
		u.showReport("The file QC is complete", res.Report)
		return nil
	})
}

func (u *uiState) onCheckWells() {
	if u.geojson.data == nil {
		dialog.ShowInformation("Samples and wells", "Please upload a GeoJSON file in step 1 first.", u.w)
		return
	}
	text := u.wellsEntry.Text
	u.runAction("check samples and wells", func() error {
		_, report, err := u.service.CheckSampleWells(u.geojson.data, text)
		if err != nil {
			return err
		}
		u.showReport("The samples and wells scheme QC is done!", report)
		return nil
	})
}

func (u *uiState) onCreateContours() {
	if u.geojson.data == nil {
		dialog.ShowInformation("Contours", "Please upload a GeoJSON file in step 1 first.", u.w)
		return
	}
	text := u.wellsEntry.Text
	u.runAction("create contours", func() error {
		out, report, err := u.service.CreateContours(u.geojson.data, u.geojson.name, text)
		if err != nil {
			return err
		}
		fyne.Do(func() {
			d := dialog.NewCustom("Your Contours", "Close", contourResultContent(out, report), u.w)
			d.Resize(fyne.NewSize(720, 760))
			d.Show()
		})
		return nil
	})
}

// contourResultContent shows the preview image above the collection stats,
// the written files and any warnings.
func contourResultContent(out annotation.ContourOutputs, report *annotation.Report) *fyne.Container {
	img := canvas.NewImageFromFile(out.Plot)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(480, 480))

	stats := widget.NewLabelWithStyle(out.Stats.String(), fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	details := container.NewVBox(
		widget.NewLabel(fmt.Sprintf("Contours created successfully!\n%s\n%s\n%s", out.XML, out.Plate, out.Plot)),
		stats,
	)
	if report != nil && len(report.Warnings) > 0 {
		warn := widget.NewLabel(strings.Join(report.Warnings, "\n"))
		warn.Wrapping = fyne.TextWrapWord
		details.Add(warn)
	}
	return container.NewBorder(nil, container.NewVScroll(details), nil, nil, img)
}

func (u *uiState) onCreateClasses() {
	first, second := u.classFirst.Text, u.classSecond.Text
	reps, err := strconv.Atoi(strings.TrimSpace(u.classReps.Text))
	if err != nil {
		u.showError(fmt.Errorf("replicates: %w", err))
		return
	}
	u.runAction("create classes", func() error {
		path, names, err := u.service.CreateClassList(first, second, reps)
		if err != nil {
			return err
		}
		u.showInfo("QuPath classes", fmt.Sprintf("%d classes written to %s", len(names), path))
		return nil
	})
}

func (u *uiState) onCreateScheme() {
	first, second := u.schemeFirst.Text, u.schemeSecond.Text
	reps, err := strconv.Atoi(strings.TrimSpace(u.schemeReps.Text))
	if err != nil {
		u.showError(fmt.Errorf("replicates: %w", err))
		return
	}
	u.runAction("create default scheme", func() error {
		out, err := u.service.CreateDefaultScheme(first, second, reps)
		if err != nil {
			return err
		}
		text, err := out.Scheme.MarshalJSON()
		if err != nil {
			return err
		}
		fyne.Do(func() {
			u.wellsEntry.SetText(annotation.FormatSampleWells(text))
		})
		u.showInfo("Samples and wells", fmt.Sprintf("%d samples written to %s and %s", out.Scheme.Len(), out.JSON, out.CSV))
		return nil
	})
}

func (u *uiState) onLabelShapes() {
	if u.labelGeojson.data == nil || u.metadata.data == nil {
		dialog.ShowInformation("Labelled shapes", "Please upload a GeoJSON and a CSV file first.", u.w)
		return
	}
	nameKey, valueKey := u.nameKey.Text, u.valueKey.Text
	u.runAction("label shapes", func() error {
		path, report, err := u.service.LabelShapes(u.labelGeojson.data, u.labelGeojson.name, u.metadata.data, nameKey, valueKey)
		if err != nil {
			if unmatched, ok := annotation.IsUnmatched(err); ok {
				return fmt.Errorf("%d class names are missing from the metadata: %s", len(unmatched.Unmatched), strings.Join(unmatched.Unmatched, ", "))
			}
			return err
		}
		u.showReport("Labelled shapes written to "+path, report)
		return nil
	})
}

func (u *uiState) pickFile(exts []string, onPicked func(pickedFile)) {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			u.showError(err)
			return
		}
		onPicked(pickedFile{name: filepath.Base(rc.URI().Path()), data: data})
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	fd.Show()
}

func (u *uiState) pickPath(exts []string, onPicked func(string)) {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		rc.Close()
		onPicked(path)
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	fd.Show()
}

func (u *uiState) showReport(title string, report *annotation.Report) {
	msg := title
	if report != nil && len(report.Warnings)+len(report.Errors) > 0 {
		var lines []string
		lines = append(lines, report.Errors...)
		lines = append(lines, report.Warnings...)
		msg += "\n\n" + strings.Join(lines, "\n")
	}
	u.showInfo("Result", msg)
}

func (u *uiState) showInfo(title, msg string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, msg, u.w)
	})
}

func (u *uiState) showError(err error) {
	fyne.Do(func() {
		dialog.ShowError(err, u.w)
	})
}

func (u *uiState) setBusy(b bool) {
	u.busyMu.Lock()
	defer u.busyMu.Unlock()
	fyne.Do(func() {
		for _, btn := range u.buttons {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
	})
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) appendLog(msg string) {
	u.logger.Print(msg)
}
