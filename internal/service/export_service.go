package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"edustream/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 设计说明：
//   - 仅课程所有者或管理员可导出
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 三个 Sheet：课程概览 / 讲次进度 / 评分明细
type ExportService interface {
	// ExportCourseReport 导出课程学习报告
	ExportCourseReport(ctx context.Context, courseID string, caller *Caller) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const (
	sheetOverview = "课程概览"
	sheetProgress = "讲次进度"
	sheetRatings  = "评分明细"
)

// lectureStat 单讲进度统计
type lectureStat struct {
	learners  int
	sumOffset float64
	maxOffset float64
}

// ═══════════════════════════════════════════════════════════
// ExportCourseReport 导出课程学习报告
// ═══════════════════════════════════════════════════════════
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportCourseReport(ctx context.Context, courseID string, caller *Caller) (*bytes.Buffer, string, error) {
	if caller == nil {
		return nil, "", ErrUnauthenticated
	}

	// 1. 查询课程并校验权限
	course, err := loadCourse(ctx, s.repo.Course, courseID, s.logger)
	if err != nil {
		return nil, "", err
	}
	if !canManageCourse(caller, course) {
		return nil, "", ErrNotCourseOwner
	}

	// 2. 汇总讲次进度
	records, err := s.repo.Progress.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课程进度失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, "", err
	}
	stats := make(map[string]*lectureStat, len(course.Lectures))
	for _, r := range records {
		st, ok := stats[r.LectureID]
		if !ok {
			st = &lectureStat{}
			stats[r.LectureID] = st
		}
		st.learners++
		st.sumOffset += r.OffsetSeconds
		if r.OffsetSeconds > st.maxOffset {
			st.maxOffset = r.OffsetSeconds
		}
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 概览
	idx, _ := f.NewSheet(sheetOverview)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.SetColWidth(sheetOverview, "A", "A", 16)
	f.SetColWidth(sheetOverview, "B", "B", 48)
	overview := [][2]interface{}{
		{"课程", course.Title},
		{"课程 ID", course.CourseID},
		{"教师", course.TeacherID},
		{"讲次数", len(course.Lectures)},
		{"评分人数", course.RatingCount},
		{"平均评分", fmt.Sprintf("%.2f", course.AverageRating)},
		{"导出时间", time.Now().Format("2006-01-02 15:04:05")},
	}
	for i, kv := range overview {
		f.SetCellValue(sheetOverview, cell("A", i+1), kv[0])
		f.SetCellValue(sheetOverview, cell("B", i+1), kv[1])
	}
	f.SetCellStyle(sheetOverview, "A1", cell("A", len(overview)), headerStyle)

	// 讲次进度
	f.NewSheet(sheetProgress)
	f.SetColWidth(sheetProgress, "A", "A", 8)
	f.SetColWidth(sheetProgress, "B", "B", 32)
	f.SetColWidth(sheetProgress, "C", "E", 16)
	for i, h := range []string{"序号", "讲次", "学习人数", "平均进度(秒)", "最远进度(秒)"} {
		f.SetCellValue(sheetProgress, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetProgress, "A1", "E1", headerStyle)
	for i, l := range course.Lectures {
		row := i + 2
		f.SetCellValue(sheetProgress, cell("A", row), i+1)
		f.SetCellValue(sheetProgress, cell("B", row), l.Title)
		st, ok := stats[l.ID]
		if !ok {
			f.SetCellValue(sheetProgress, cell("C", row), 0)
			f.SetCellValue(sheetProgress, cell("D", row), "-")
			f.SetCellValue(sheetProgress, cell("E", row), "-")
			continue
		}
		f.SetCellValue(sheetProgress, cell("C", row), st.learners)
		f.SetCellValue(sheetProgress, cell("D", row), fmt.Sprintf("%.1f", st.sumOffset/float64(st.learners)))
		f.SetCellValue(sheetProgress, cell("E", row), fmt.Sprintf("%.1f", st.maxOffset))
	}

	// 评分明细
	f.NewSheet(sheetRatings)
	f.SetColWidth(sheetRatings, "A", "A", 36)
	f.SetColWidth(sheetRatings, "B", "C", 20)
	for i, h := range []string{"学员", "评分", "评分时间"} {
		f.SetCellValue(sheetRatings, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetRatings, "A1", "C1", headerStyle)
	for i, r := range course.Ratings {
		row := i + 2
		f.SetCellValue(sheetRatings, cell("A", row), r.RaterID)
		f.SetCellValue(sheetRatings, cell("B", row), r.Value)
		f.SetCellValue(sheetRatings, cell("C", row), r.RatedAt.Format("2006-01-02 15:04:05"))
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课程报告_%s.xlsx", course.Title)
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
