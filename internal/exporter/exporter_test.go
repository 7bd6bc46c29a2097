package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

func f64(v float64) *float64 { return &v }

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !strings.HasPrefix(string(data), utf8BOM) {
		t.Fatalf("%s: missing BOM", path)
	}
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), utf8BOM)))
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return recs
}

func sampleReport() []model.ReportRow {
	return []model.ReportRow{
		{GroupKey: "Group_1_2", Reason: "排名接近(差1)", Rank: 1, ServerID: 1, DAU: 120, Top2Power: 9e9, MaxRecharge: 6000, Income3d: f64(12.5)},
		{GroupKey: "Group_1_2", Reason: "排名接近(差1)", Rank: 2, ServerID: 2, DAU: 3, Top2Power: 8.5e9, MaxRecharge: 100},
		{Separator: true},
		{GroupKey: "Group_1_2_DAU", Reason: "关联服40DAU过低(3)", Rank: 40, ServerID: 40, DAU: 3, Top2Power: 1},
	}
}

func TestWriteReportCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileAlertCSV)
	if err := WriteReportCSV(path, sampleReport()); err != nil {
		t.Fatalf("WriteReportCSV: %v", err)
	}

	recs := readCSV(t, path)
	wantHeader := []string{"真实排名", "警报组ID", "警报原因", "区服ID", "DAU", "近3日收入", "前2名战力之和", "最高玩家累充金额"}
	if strings.Join(recs[0], "|") != strings.Join(wantHeader, "|") {
		t.Fatalf("header = %v", recs[0])
	}
	if len(recs) != 5 {
		t.Fatalf("rows = %d, want 5", len(recs))
	}
	if got := recs[1]; got[3] != "1" || got[4] != "120" || got[5] != "12.5" || got[6] != "9000000000" {
		t.Fatalf("row 1 = %v", got)
	}
	if recs[2][5] != "" {
		t.Fatalf("absent metric should be blank: %v", recs[2])
	}
	if strings.Join(recs[3], "") != "" {
		t.Fatalf("separator row not blank: %v", recs[3])
	}
}

func TestWriteReportXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileAlertXLSX)
	if err := WriteReportXLSX(path, sampleReport()); err != nil {
		t.Fatalf("WriteReportXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows("警报结果")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if rows[0][1] != "警报组ID" || rows[1][1] != "Group_1_2" {
		t.Fatalf("unexpected rows: %v", rows[:2])
	}
	if len(rows[3]) != 0 {
		t.Fatalf("separator row not empty: %v", rows[3])
	}
	if rows[4][3] != "40" {
		t.Fatalf("row 5 = %v", rows[4])
	}
}

func TestWriteSwapLog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileSwapLog)
	entries := []model.SwapLogEntry{
		{Pair: model.CandidatePair{A: 10, B: 11}, Status: model.SwapMerged, Row1: 2, Row2: 3,
			Before1: "[10 + 30]", After1: "[10 + 11]", Before2: "[11 + 31]", After2: "[30 + 31]"},
		{Pair: model.CandidatePair{A: 5, B: 77}, Status: model.SwapSkipped, Reason: merge.SkipNotInPlan, Row1: 4},
	}
	if err := WriteSwapLog(path, entries); err != nil {
		t.Fatalf("WriteSwapLog: %v", err)
	}

	recs := readCSV(t, path)
	if len(recs) != 3 {
		t.Fatalf("rows = %d", len(recs))
	}
	if strings.Join(recs[1], "|") != "10+11|2|3|[10 + 30]|[10 + 11]|[11 + 31]|[30 + 31]|已合并|" {
		t.Fatalf("merged row = %v", recs[1])
	}
	if recs[2][2] != "" || recs[2][7] != "已跳过" || recs[2][8] != "未在合服计划中找到" {
		t.Fatalf("skipped row = %v", recs[2])
	}
}

func writeSourcePlan(t *testing.T, dir string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"序号", "目标服", "参与服", "备注"},
		{1, 10, 30, "a"},
		{2, 11, 31, "b"},
		{3, 1, 2, "c"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "input.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportAll_WritesPlanWithHighlight(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeSourcePlan(t, dir)
	out := filepath.Join(dir, "out")

	res := &merge.Result{
		Report: sampleReport(),
		Plan: &model.Plan{Rows: []model.PlanRow{
			{Number: 2, Slots: [2]model.ServerID{10, 11}},
			{Number: 3, Slots: [2]model.ServerID{30, 0}},
			{Number: 4, Slots: [2]model.ServerID{1, 2}},
		}},
		ChangedRows: []int{2, 3},
	}
	layout := PlanLayout{SourcePath: src, Sheet: "Sheet1", TargetCol: 1, ParticipantCol: 2}

	var stages []ProgressEvent
	files, err := NewExporter(out, "FFFF00").ExportAll(res, layout, func(ev ProgressEvent) {
		stages = append(stages, ev)
	})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	for _, name := range files.List() {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	if len(stages) == 0 || stages[len(stages)-1].Percent != 100 {
		t.Fatalf("unexpected progress: %+v", stages)
	}

	f, err := excelize.OpenFile(filepath.Join(out, files.Plan))
	if err != nil {
		t.Fatalf("open plan: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if rows[1][1] != "10" || rows[1][2] != "11" || rows[1][3] != "a" {
		t.Fatalf("row 2 = %v", rows[1])
	}
	if rows[2][1] != "30" || rows[2][2] != "" {
		t.Fatalf("row 3 = %v", rows[2])
	}

	for _, cell := range []string{"A2", "D2", "B3"} {
		color, err := HighlightColor(f, "Sheet1", cell)
		if err != nil {
			t.Fatal(err)
		}
		if color != "FFFF00" {
			t.Fatalf("%s fill = %q, want FFFF00", cell, color)
		}
	}
	if color, _ := HighlightColor(f, "Sheet1", "B4"); color != "" {
		t.Fatalf("unchanged row must not be highlighted, got %q", color)
	}
}

func TestWriteManifest(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run")
	e := NewExporter(dir, "FFFF00")
	want := Manifest{
		RunID:    "r1",
		Sources:  []string{"a.csv"},
		PlanFile: "plan.xlsx",
		Rules:    merge.DefaultRules(),
		Summary:  model.RunSummary{TotalServers: 20, MergeCount: 1},
		Notices:  []model.Notice{{Kind: model.NoticeMissingRecord, Level: model.LevelWarn, Message: "缺少区服 404 的数据"}},
	}
	path, err := e.WriteManifest(want)
	if err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if path != filepath.Join(dir, FileManifest) {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	got, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.RunID != want.RunID || got.Summary != want.Summary || got.Rules != want.Rules {
		t.Fatalf("manifest = %+v", got)
	}
	if len(got.Notices) != 1 || got.Notices[0] != want.Notices[0] {
		t.Fatalf("notices = %+v", got.Notices)
	}
}
