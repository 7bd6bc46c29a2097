package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/config"
	"github.com/IM594/vivi-server-merge-tool/internal/exporter"
	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/parser"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
)

// writeStatsCSV 区服 1..20，战力按 ID 递减；区服 11 战力最低
func writeStatsCSV(t *testing.T, dir string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("区服数据,,,\n区服ID,前2名战力之和,最高玩家累充金额,DAU\n")
	for i := 1; i <= 20; i++ {
		power := fmt.Sprintf("%d", (21-i)*10_000_000_000)
		if i == 11 {
			power = "500000000"
		}
		fmt.Fprintf(&b, "%d,%s,100,100\n", i, power)
	}
	path := filepath.Join(dir, "stats.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePlanXLSX(t *testing.T, dir string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"目标服", "参与服"},
		{10, 30},
		{11, 31},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "plan.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store, string) {
	t.Helper()

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewCoordinator(st, config.DefaultConfig(), filepath.Join(dir, "outputs"), nil), st, dir
}

func TestCoordinator_RunSync(t *testing.T) {
	t.Parallel()

	c, st, dir := newTestCoordinator(t)
	report, err := c.RunSync(context.Background(), RunOptions{
		StatsFiles: []parser.InputFile{{Name: "stats.csv", Path: writeStatsCSV(t, dir)}},
		PlanFile:   parser.InputFile{Name: "plan.xlsx", Path: writePlanXLSX(t, dir)},
		PairsText:  "10,11",
	})
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if report.RunID == "" || report.MergeCount != 1 || report.AlertCount != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !report.PlanHeaderMatched {
		t.Fatal("plan header should be matched")
	}
	for _, name := range report.Files.List() {
		if _, err := os.Stat(filepath.Join(report.OutDir, name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	if report.OutDir != c.OutputDir(report.RunID) {
		t.Fatalf("out dir = %s", report.OutDir)
	}

	var success bool
	for _, e := range report.Logs {
		if e.Level == "SUCCESS" && e.Msg == "所有任务处理完成！" {
			success = true
		}
	}
	if !success {
		t.Fatalf("missing completion log: %+v", report.Logs)
	}

	detail, err := st.GetRun(report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if detail.Status != model.RunDone || detail.MergeCount != 1 || detail.TotalServers != 20 {
		t.Fatalf("unexpected stored run: %+v", detail.Run)
	}
	if len(detail.Merges) != 1 || detail.Merges[0].After1 != "[10 + 11]" {
		t.Fatalf("merges = %+v", detail.Merges)
	}
	if len(detail.Sources) != 1 || detail.Sources[0] != "stats.csv" {
		t.Fatalf("sources = %v", detail.Sources)
	}
}

func TestCoordinator_RunEvents(t *testing.T) {
	t.Parallel()

	c, _, dir := newTestCoordinator(t)
	ch := c.Run(context.Background(), RunOptions{
		RunID:      "fixed-id",
		StatsFiles: []parser.InputFile{{Path: writeStatsCSV(t, dir)}},
		PlanFile:   parser.InputFile{Path: writePlanXLSX(t, dir)},
		PairsText:  "1,2",
	})

	var types []string
	var last ProgressEvent
	for ev := range ch {
		types = append(types, ev.Type)
		last = ev
	}
	if len(types) == 0 || types[0] != EventStart {
		t.Fatalf("events = %v", types)
	}
	if last.Type != EventDone {
		t.Fatalf("last event = %+v", last)
	}
	report := last.Data.(*RunReport)
	if report.RunID != "fixed-id" || report.AlertCount != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCoordinator_FailureRecorded(t *testing.T) {
	t.Parallel()

	c, st, dir := newTestCoordinator(t)
	_, err := c.RunSync(context.Background(), RunOptions{
		RunID:      "broken",
		StatsFiles: []parser.InputFile{{Name: "gone.csv", Path: filepath.Join(dir, "gone.csv")}},
		PlanFile:   parser.InputFile{Path: writePlanXLSX(t, dir)},
		PairsText:  "1,2",
	})
	if !errors.Is(err, merge.ErrNoInputTable) {
		t.Fatalf("expected ErrNoInputTable, got %v", err)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.RunID != "broken" || len(runErr.Logs) == 0 {
		t.Fatalf("unexpected run error: %#v", err)
	}

	detail, err := st.GetRun("broken")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Status != model.RunFailed || detail.ErrorMessage == "" {
		t.Fatalf("unexpected stored run: %+v", detail.Run)
	}
}

func TestCoordinator_RulesOverride(t *testing.T) {
	t.Parallel()

	c, st, _ := newTestCoordinator(t)
	if got := c.Rules(); got != merge.DefaultRules() {
		t.Fatalf("default rules = %+v", got)
	}

	saved := merge.DefaultRules()
	saved.RankGap = 1
	if err := st.SaveRules(saved); err != nil {
		t.Fatal(err)
	}
	if got := c.Rules(); got != saved {
		t.Fatalf("saved rules not applied: %+v", got)
	}

	saved.TopRatio = 0
	if err := st.SaveRules(saved); err != nil {
		t.Fatal(err)
	}
	if got := c.Rules(); got != merge.DefaultRules() {
		t.Fatalf("invalid saved rules must be ignored: %+v", got)
	}
}

func TestCoordinator_WithoutStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewCoordinator(nil, config.DefaultConfig(), dir, nil)
	report, err := c.RunSync(context.Background(), RunOptions{
		StatsFiles: []parser.InputFile{{Path: writeStatsCSV(t, dir)}},
		PlanFile:   parser.InputFile{Path: writePlanXLSX(t, dir)},
		PairsText:  "10,11",
		OutDir:     filepath.Join(dir, "out"),
	})
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if report.OutDir != filepath.Join(dir, "out") {
		t.Fatalf("out dir = %s", report.OutDir)
	}

	m, err := exporter.ReadManifest(report.OutDir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.RunID != report.RunID || m.Summary.MergeCount != 1 || m.Summary.TotalServers != 20 || len(m.Logs) == 0 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}
