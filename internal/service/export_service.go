package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"formflow/backend/internal/model"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/workflow"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出表单的提交进度为 Excel (.xlsx)
//   - 行：当前分配人 + 已不在分配范围但仍有提交记录的用户
//   - 列：姓名 | 邮箱 | 提交状态 | 展示状态 | 提交时间 | 审核时间 | 各字段当前上传状态
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	ExportForm(ctx context.Context, formID string, actor workflow.Actor) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var submissionStatusNames = map[workflow.SubmissionStatus]string{
	workflow.StatusNotYetResponded:   "未提交",
	workflow.StatusUserResponded:     "待审核",
	workflow.StatusRejectionProcess:  "已驳回",
	workflow.StatusRejectedResponded: "重新提交待审核",
	workflow.StatusCompleted:         "已完成",
}

var responseStatusNames = map[workflow.ResponseStatus]string{
	workflow.ResponsePending:  "待审核",
	workflow.ResponseApproved: "已通过",
	workflow.ResponseRejected: "已驳回",
}

// exportRow 导出的一行
type exportRow struct {
	name   string
	email  string
	sub    *model.FormSubmission
	fields map[string]*model.SubmissionResponse // field_id → 当前行
}

// ═══════════════════════════════════════════════════════════
// ExportForm — 导出表单提交进度
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportForm(ctx context.Context, formID string, actor workflow.Actor) (*bytes.Buffer, string, error) {
	if !actor.Can(workflow.PermReviewSubmissions) && !actor.Can(workflow.PermManageForms) {
		return nil, "", ErrNoPermission
	}

	// 1. 表单及分配人
	form, err := s.repo.Form.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrFormNotFound
		}
		s.logger.Error("查询表单失败", zap.Error(err))
		return nil, "", err
	}
	assignees, err := resolveAssignees(ctx, s.repo, form)
	if err != nil {
		s.logger.Error("解析表单分配人失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 提交记录及各字段当前行
	subs, err := s.repo.Submission.ListByForm(ctx, formID)
	if err != nil {
		s.logger.Error("查询表单提交失败", zap.Error(err))
		return nil, "", err
	}

	rows := make([]*exportRow, 0, len(assignees))
	byUser := make(map[string]*exportRow, len(assignees))
	for _, u := range assignees {
		r := &exportRow{name: u.Name, email: u.Email}
		rows = append(rows, r)
		byUser[u.UserID] = r
	}
	for i := range subs {
		sub := &subs[i]
		r, ok := byUser[sub.UserID]
		if !ok {
			r = &exportRow{}
			if sub.User != nil {
				r.name, r.email = sub.User.Name, sub.User.Email
			}
			rows = append(rows, r)
			byUser[sub.UserID] = r
		}
		r.sub = sub

		current, err := s.repo.Response.ListCurrent(ctx, sub.SubmissionID)
		if err != nil {
			s.logger.Error("查询上传记录失败", zap.Error(err))
			return nil, "", err
		}
		r.fields = make(map[string]*model.SubmissionResponse, len(current))
		for j := range current {
			r.fields[current[j].FieldID] = &current[j]
		}
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "提交进度"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	fixed := []string{"姓名", "邮箱", "提交状态", "展示状态", "提交时间", "审核时间"}
	totalCols := len(fixed) + len(form.Fields)

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "D", 16)
	f.SetColWidth(sheetName, "E", "F", 20)
	if len(form.Fields) > 0 {
		f.SetColWidth(sheetName, colName(len(fixed)), colName(totalCols-1), 18)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 提交进度", form.Title))
	f.MergeCell(sheetName, "A1", cell(colName(totalCols-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range fixed {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	for i, field := range form.Fields {
		f.SetCellValue(sheetName, cell(colName(len(fixed)+i), row), field.Label)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(totalCols-1), row), headerStyle)

	// 数据行
	row = 3
	for _, r := range rows {
		status, display := "未分配", "-"
		submittedAt, reviewedAt := "-", "-"
		if r.sub != nil {
			status = submissionStatusNames[r.sub.Status]
			display = string(workflow.ExpectedDisplay(r.sub.Status))
			submittedAt = formatTime(r.sub.SubmittedAt)
			reviewedAt = formatTime(r.sub.ReviewedAt)
		}
		values := []string{r.name, r.email, status, display, submittedAt, reviewedAt}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		for i, field := range form.Fields {
			text := "未上传"
			if resp, ok := r.fields[field.FieldID]; ok {
				text = responseStatusNames[resp.Status]
			}
			f.SetCellValue(sheetName, cell(colName(len(fixed)+i), row), text)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("提交进度_%s.xlsx", form.Title)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
