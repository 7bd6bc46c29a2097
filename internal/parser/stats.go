package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

// InputFile 上传文件：Name 为原始文件名，Path 为落盘路径
type InputFile struct {
	Name string
	Path string
}

// StatsParser 区服统计表解析器（CSV / XLSX）
type StatsParser struct {
	recognizer *HeaderRecognizer
	headerRow  int
}

// NewStatsParser 创建解析器；headerRow 为首选表头行（从 1 开始）
func NewStatsParser(aliases map[string][]string, headerRow int) *StatsParser {
	return &StatsParser{
		recognizer: NewHeaderRecognizer(NewFieldMapper(aliases)),
		headerRow:  headerRow,
	}
}

// ParseFiles 依次解析多个统计文件；单个文件失败记为提示并跳过，全部失败时返回 ErrNoInputTable
func (p *StatsParser) ParseFiles(files []InputFile) (StatsResult, error) {
	var res StatsResult
	for _, in := range files {
		name := in.Name
		if name == "" {
			name = filepath.Base(in.Path)
		}
		sf, err := p.ParseFile(in.Path)
		if err != nil {
			res.Notices = append(res.Notices, model.Notice{
				Kind:    model.NoticeUnreadableFile,
				Level:   model.LevelError,
				Message: fmt.Sprintf("读取文件 %s 失败: %v", name, err),
			})
			continue
		}
		sf.Name = name
		res.Files = append(res.Files, sf)
	}
	if len(res.Files) == 0 {
		return res, merge.ErrNoInputTable
	}
	return res, nil
}

// ParseFile 按扩展名选择 CSV 或 XLSX
func (p *StatsParser) ParseFile(path string) (StatsFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return StatsFile{}, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		return p.ParseWorkbook(f, filepath.Base(path))
	default:
		fh, err := os.Open(path)
		if err != nil {
			return StatsFile{}, err
		}
		defer fh.Close()
		return p.ParseCSV(fh, filepath.Base(path))
	}
}

// ParseCSV 解析 CSV；首个单元格的 UTF-8 BOM 会被去除
func (p *StatsParser) ParseCSV(r io.Reader, name string) (StatsFile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return StatsFile{}, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return p.parseRows(rows, name)
}

// ParseWorkbook 解析工作簿的第一个工作表
func (p *StatsParser) ParseWorkbook(f *excelize.File, name string) (StatsFile, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return StatsFile{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return StatsFile{}, fmt.Errorf("failed to read sheet: %w", err)
	}
	return p.parseRows(rows, name)
}

func (p *StatsParser) parseRows(rows [][]string, name string) (StatsFile, error) {
	det, ok := p.recognizer.Recognize(rows, p.headerRow)
	if !ok {
		return StatsFile{}, fmt.Errorf("header row not found")
	}
	if missing := MissingRequired(det.Columns); len(missing) > 0 {
		return StatsFile{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	sf := StatsFile{Name: name, Header: det}
	for _, row := range rows[det.Row:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(model.RawRecord, len(det.Columns))
		for field, idx := range det.Columns {
			if idx < len(row) {
				rec[field] = strings.TrimSpace(row[idx])
			} else {
				rec[field] = ""
			}
		}
		sf.Records = append(sf.Records, rec)
	}
	sf.Rows = len(sf.Records)
	return sf, nil
}
