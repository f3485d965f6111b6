// Package webui serves a read-only dashboard over a running *kernel.Kernel:
// the process table, one slot's details, and a free/total summary of the
// physical page bitmap.
package webui

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/winix-os/winix/kernel"
)

const (
	defaultAddr = ":8080"
	procPath    = "/proc/"
)

// UI serves kernel state snapshots over HTTP, refreshing its cached copy
// under a lock so concurrent requests never see a half-updated snapshot.
type UI struct {
	k           *kernel.Kernel
	addr        string
	data        Data
	refreshLock sync.Mutex
}

// Data is what every page template renders against.
type Data struct {
	LastRefresh time.Time
	Procs       []kernel.ProcSnapshot
	Mem         kernel.MemStats
}

// New wraps k for serving. addr defaults to ":8080" when empty.
func New(k *kernel.Kernel, addr string) *UI {
	if addr == "" {
		addr = defaultAddr
	}
	return &UI{k: k, addr: addr}
}

// Serve blocks, listening at ui.addr: register handlers, log, panic on
// listen failure.
func (ui *UI) Serve() {
	http.HandleFunc("/", ui.handleProcessTable)
	http.HandleFunc("/mem", ui.handleMemMap)
	http.HandleFunc(procPath, ui.handleProcDetails)
	http.HandleFunc("/refresh", ui.handleRefresh)

	log.Printf("winix webui serving at %s", ui.addr)
	panic(http.ListenAndServe(ui.addr, nil))
}

func (ui *UI) refresh() {
	ui.data.Procs = ui.k.Snapshot()
	ui.data.Mem = ui.k.MemStats()
	ui.data.LastRefresh = time.Now()
}

func (ui *UI) handleProcessTable(w http.ResponseWriter, r *http.Request) {
	ui.refreshLock.Lock()
	defer ui.refreshLock.Unlock()
	ui.refresh()

	t, err := createTemplate(processTableView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, ui.data); err != nil {
		writeFailure(w, err)
	}
}

func (ui *UI) handleMemMap(w http.ResponseWriter, r *http.Request) {
	ui.refreshLock.Lock()
	defer ui.refreshLock.Unlock()
	ui.refresh()

	t, err := createTemplate(memMapView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, ui.data); err != nil {
		writeFailure(w, err)
	}
}

func (ui *UI) handleProcDetails(w http.ResponseWriter, r *http.Request) {
	nrString := strings.TrimPrefix(r.URL.Path, procPath)
	nr, err := strconv.Atoi(nrString)
	if err != nil {
		writeFailure(w, err)
		return
	}

	ui.refreshLock.Lock()
	defer ui.refreshLock.Unlock()
	ui.refresh()

	var found *kernel.ProcSnapshot
	for i := range ui.data.Procs {
		if ui.data.Procs[i].ProcNr == nr {
			found = &ui.data.Procs[i]
			break
		}
	}
	if found == nil {
		writeFailure(w, fmt.Errorf("no live process at proc_nr %d", nr))
		return
	}
	t, err := createTemplate(procDetailsView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, found); err != nil {
		writeFailure(w, err)
	}
}

func (ui *UI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ui.refreshLock.Lock()
	ui.refresh()
	ui.refreshLock.Unlock()
	log.Println("winix webui: refreshed kernel snapshot")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func createTemplate(body string) (*template.Template, error) {
	return template.New("response").Parse(uiHeader + body + uiFooter)
}

func writeFailure(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	t, _ := createTemplate(errorView)
	t.Execute(w, err.Error())
}
