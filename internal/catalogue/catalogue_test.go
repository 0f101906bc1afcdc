package catalogue_test

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/monomonedula/evrostan/internal/catalogue"
	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func imagesFor(pano string, headings ...int) []model.AcquiredImage {
	out := make([]model.AcquiredImage, 0, len(headings))
	for _, h := range headings {
		out = append(out, model.AcquiredImage{
			Request: model.ImageRequest{PanoID: pano, FOV: 90, Heading: h, Width: 600, Height: 400},
			Data:    []byte(fmt.Sprintf("%s-%d", pano, h)),
		})
	}
	return out
}

// hands out canned images per panorama, tracks which panoramas were
// asked for
type acquirerDouble struct {
	mu     sync.Mutex
	calls  []string
	images map[string][]model.AcquiredImage
}

func (a *acquirerDouble) Acquire(_ context.Context, reqs []model.ImageRequest) []model.AcquiredImage {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(reqs) == 0 {
		return nil
	}
	a.calls = append(a.calls, reqs[0].PanoID)
	return a.images[reqs[0].PanoID]
}

func (a *acquirerDouble) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// pretends to persist, optionally failing per panorama
type strategyDouble struct {
	mu   sync.Mutex
	fail map[string]bool
}

func (s *strategyDouble) Save(images []model.AcquiredImage) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(images) == 0 {
		return nil, nil
	}
	id := images[0].Request.PanoID
	if s.fail[id] {
		return nil, errors.New("disk full")
	}
	paths := make([]string, len(images))
	for i := range images {
		paths[i] = fmt.Sprintf("%s/%d.jpg", id, i)
	}
	return paths, nil
}

func readIndex(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "index.csv"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse index: %v", err)
	}
	return rows
}

func params(dir string, acq catalogue.Acquirer, strat store.Strategy) catalogue.Params {
	return catalogue.Params{
		Dir:      dir,
		FOV:      90,
		Width:    600,
		Height:   400,
		Strategy: strat,
		Acquirer: acq,
	}
}

func TestAdd_WritesIndexRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-a": imagesFor("pano-a", 0, 90),
		"pano-b": imagesFor("pano-b", 0),
	}}
	cat := catalogue.New(discardLogger(), params(dir, acq, &strategyDouble{}))

	recs := []model.PanoramaRecord{
		{ID: "pano-a", Location: model.Coordinate{Lat: 50.1, Lng: 30.2}},
		{ID: "pano-b", Location: model.Coordinate{Lat: 51.5, Lng: 29.25}},
	}
	if err := cat.Add(context.Background(), recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	rows := readIndex(t, dir)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}
	wantHeader := []string{"pano_id", "latitude", "longitude"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Fatalf("header %v, want %v", rows[0], wantHeader)
		}
	}
	if rows[1][0] != "pano-a" || rows[1][1] != "50.1" || rows[1][2] != "30.2" {
		t.Fatalf("row 1: %v", rows[1])
	}
	if rows[2][0] != "pano-b" || rows[2][1] != "51.5" || rows[2][2] != "29.25" {
		t.Fatalf("row 2: %v", rows[2])
	}
}

func TestAdd_RefusesExistingIndex(t *testing.T) {
	dir := t.TempDir()
	sentinel := []byte("pano_id,latitude,longitude\nkeep,1,2\n")
	if err := os.WriteFile(filepath.Join(dir, "index.csv"), sentinel, 0o644); err != nil {
		t.Fatalf("seed index: %v", err)
	}

	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{}}
	cat := catalogue.New(discardLogger(), params(dir, acq, &strategyDouble{}))

	err := cat.Add(context.Background(), []model.PanoramaRecord{{ID: "pano-a"}})
	if !errors.Is(err, catalogue.ErrIndexExists) {
		t.Fatalf("got %v, want ErrIndexExists", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "index.csv"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(got) != string(sentinel) {
		t.Fatalf("previous index was modified")
	}
	if acq.callCount() != 0 {
		t.Fatalf("acquirer was called before the index check")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("refused run created files: %d entries", len(entries))
	}
}

func TestAdd_SkipsPanoramaWithoutImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-b": imagesFor("pano-b", 0, 90, 180, 270),
	}}
	cat := catalogue.New(discardLogger(), params(dir, acq, &strategyDouble{}))

	recs := []model.PanoramaRecord{
		{ID: "pano-a", Location: model.Coordinate{Lat: 1, Lng: 2}},
		{ID: "pano-b", Location: model.Coordinate{Lat: 3, Lng: 4}},
	}
	if err := cat.Add(context.Background(), recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	rows := readIndex(t, dir)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus 1", len(rows))
	}
	if rows[1][0] != "pano-b" {
		t.Fatalf("row: %v", rows[1])
	}
}

func TestAdd_PersistFailureAbortsButKeepsFlushedRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-a": imagesFor("pano-a", 0),
		"pano-b": imagesFor("pano-b", 0),
		"pano-c": imagesFor("pano-c", 0),
	}}
	strat := &strategyDouble{fail: map[string]bool{"pano-b": true}}
	cat := catalogue.New(discardLogger(), params(dir, acq, strat))

	recs := []model.PanoramaRecord{
		{ID: "pano-a", Location: model.Coordinate{Lat: 1, Lng: 2}},
		{ID: "pano-b", Location: model.Coordinate{Lat: 3, Lng: 4}},
		{ID: "pano-c", Location: model.Coordinate{Lat: 5, Lng: 6}},
	}
	err := cat.Add(context.Background(), recs)
	if err == nil {
		t.Fatalf("expected persistence error")
	}

	rows := readIndex(t, dir)
	if len(rows) != 2 || rows[1][0] != "pano-a" {
		t.Fatalf("flushed rows lost or extra rows present: %v", rows)
	}
	if acq.callCount() != 2 {
		t.Fatalf("work continued after abort: %d acquisitions", acq.callCount())
	}
}

func TestAdd_InvalidFOV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{}}
	p := params(dir, acq, &strategyDouble{})
	p.FOV = 7
	cat := catalogue.New(discardLogger(), p)

	err := cat.Add(context.Background(), []model.PanoramaRecord{{ID: "pano-a"}})
	if err == nil {
		t.Fatalf("expected fov error")
	}
	if acq.callCount() != 0 {
		t.Fatalf("acquirer called despite invalid fov")
	}
}

func TestAdd_CancelledContextAborts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-a": imagesFor("pano-a", 0),
	}}
	cat := catalogue.New(discardLogger(), params(dir, acq, &strategyDouble{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cat.Add(ctx, []model.PanoramaRecord{{ID: "pano-a", Location: model.Coordinate{Lat: 1, Lng: 2}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if acq.callCount() != 0 {
		t.Fatalf("acquirer called after cancellation")
	}
	if rows := readIndex(t, dir); len(rows) != 1 {
		t.Fatalf("got %d rows, want header only", len(rows))
	}
}

func TestAdd_ParallelIndexesAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	images := map[string][]model.AcquiredImage{}
	var recs []model.PanoramaRecord
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("pano-%d", i)
		images[id] = imagesFor(id, 0, 90)
		recs = append(recs, model.PanoramaRecord{ID: id, Location: model.Coordinate{Lat: float64(i), Lng: 1}})
	}
	acq := &acquirerDouble{images: images}
	p := params(dir, acq, &strategyDouble{})
	p.Workers = 4
	cat := catalogue.New(discardLogger(), p)

	if err := cat.Add(context.Background(), recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	rows := readIndex(t, dir)
	if len(rows) != 9 {
		t.Fatalf("got %d rows, want header plus 8", len(rows))
	}
	seen := map[string]bool{}
	for _, row := range rows[1:] {
		if seen[row[0]] {
			t.Fatalf("duplicate row for %s", row[0])
		}
		seen[row[0]] = true
	}
	if len(seen) != 8 {
		t.Fatalf("indexed %d panoramas, want 8", len(seen))
	}
}

func TestAdd_OverlayReceivesIndexedRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-a": imagesFor("pano-a", 0),
	}}

	var gotPath string
	var gotRecs []model.PanoramaRecord
	p := params(dir, acq, &strategyDouble{})
	p.Overlay = func(path string, recs []model.PanoramaRecord) error {
		gotPath = path
		gotRecs = recs
		return nil
	}
	cat := catalogue.New(discardLogger(), p)

	recs := []model.PanoramaRecord{
		{ID: "pano-a", Location: model.Coordinate{Lat: 1, Lng: 2}},
		{ID: "pano-z", Location: model.Coordinate{Lat: 3, Lng: 4}},
	}
	if err := cat.Add(context.Background(), recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if gotPath != filepath.Join(dir, "coverage.kml") {
		t.Fatalf("overlay path %q", gotPath)
	}
	if len(gotRecs) != 1 || gotRecs[0].ID != "pano-a" {
		t.Fatalf("overlay records %+v", gotRecs)
	}
}

func TestAdd_OverlayFailureDoesNotFailRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-a": imagesFor("pano-a", 0),
	}}
	p := params(dir, acq, &strategyDouble{})
	p.Overlay = func(string, []model.PanoramaRecord) error {
		return errors.New("render failed")
	}
	cat := catalogue.New(discardLogger(), p)

	err := cat.Add(context.Background(), []model.PanoramaRecord{
		{ID: "pano-a", Location: model.Coordinate{Lat: 1, Lng: 2}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestAdd_WithSimpleStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	acq := &acquirerDouble{images: map[string][]model.AcquiredImage{
		"pano-a": imagesFor("pano-a", 0, 90, 180, 270),
	}}
	cat := catalogue.New(discardLogger(), params(dir, acq, store.NewSimple(discardLogger(), dir)))

	recs := []model.PanoramaRecord{
		{ID: "pano-a", Location: model.Coordinate{Lat: 50.4501, Lng: 30.5234}},
	}
	if err := cat.Add(context.Background(), recs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, name := range []string{"90-0.jpg", "90-90.jpg", "90-180.jpg", "90-270.jpg"} {
		p := filepath.Join(dir, "pano-a", name)
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing tile %s: %v", name, err)
		}
	}
	rows := readIndex(t, dir)
	if len(rows) != 2 || rows[1][0] != "pano-a" {
		t.Fatalf("index rows: %v", rows)
	}
	if rows[1][1] != "50.4501" || rows[1][2] != "30.5234" {
		t.Fatalf("row coordinates: %v", rows[1])
	}
}
